package diagram

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModel = `<mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/><mxCell id="2" value="A &amp; B" vertex="1" parent="1"/></root></mxGraphModel>`

var sampleDoc = `<mxfile>
  <diagram name="Page-1" id="page-1">
    ` + sampleModel + `
  </diagram>
</mxfile>`

// equivalent compares two markup documents ignoring whitespace-only text.
func equivalent(t *testing.T, a, b string) bool {
	t.Helper()
	return canonical(t, a) == canonical(t, b)
}

func canonical(t *testing.T, s string) string {
	t.Helper()
	d := xml.NewDecoder(strings.NewReader(s))
	var out strings.Builder
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch v := tok.(type) {
		case xml.StartElement:
			out.WriteString("<" + v.Name.Local)
			for _, a := range v.Attr {
				out.WriteString(" " + a.Name.Local + "=" + a.Value)
			}
			out.WriteString(">")
		case xml.EndElement:
			out.WriteString("</" + v.Name.Local + ">")
		case xml.CharData:
			if txt := strings.TrimSpace(string(v)); txt != "" {
				out.WriteString(txt)
			}
		}
	}
	return out.String()
}

func TestIsRealDiagram(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   bool
	}{
		{"blank", "   ", false},
		{"baseline", EmptyDiagram, false},
		{"bare baseline model", `<mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/></root></mxGraphModel>`, false},
		{"garbage", "<mxfile><diagram>", false},
		{"one shape", sampleDoc, true},
		{"bare model with shape", sampleModel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRealDiagram(tt.markup))
		})
	}
}

func TestIsRealDiagram_CompressedPage(t *testing.T) {
	encoded, err := EncodeDiagram(sampleModel)
	require.NoError(t, err)

	doc := `<mxfile><diagram name="Page-1" id="p">` + encoded + `</diagram></mxfile>`
	assert.True(t, IsRealDiagram(doc))
}

func TestExtractMarkup_RoundTrip(t *testing.T) {
	rendering := EncodeSVG(sampleDoc)

	got, err := ExtractMarkup(rendering)
	require.NoError(t, err)
	assert.True(t, equivalent(t, sampleDoc, got), "got %s", got)
}

func TestExtractMarkup_DataURL(t *testing.T) {
	rendering := EncodeSVG(sampleDoc)
	payload := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(rendering))

	got, err := ExtractMarkup(payload)
	require.NoError(t, err)
	assert.True(t, equivalent(t, sampleDoc, got))
}

func TestExtractMarkup_EditorStyleSVG(t *testing.T) {
	rendering := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
<svg xmlns="http://www.w3.org/2000/svg" width="121px" height="61px" content="&lt;mxfile&gt;&lt;diagram id=&quot;p&quot;&gt;&lt;mxGraphModel&gt;&lt;root&gt;&lt;mxCell id=&quot;0&quot;/&gt;&lt;/root&gt;&lt;/mxGraphModel&gt;&lt;/diagram&gt;&lt;/mxfile&gt;"><g><foreignObject>a&nbsp;b</foreignObject></g></svg>`

	got, err := ExtractMarkup(rendering)
	require.NoError(t, err)
	assert.Equal(t, `<mxfile><diagram id="p"><mxGraphModel><root><mxCell id="0"/></root></mxGraphModel></diagram></mxfile>`, got)
}

func TestExtractMarkup_CompressedPageIsInflated(t *testing.T) {
	encoded, err := EncodeDiagram(sampleModel)
	require.NoError(t, err)
	doc := `<mxfile><diagram name="Page-1" id="p">` + encoded + `</diagram></mxfile>`

	got, err := ExtractMarkup(EncodeSVG(doc))
	require.NoError(t, err)
	assert.Equal(t, sampleModel, got)
}

func TestExtractMarkup_BareMarkupPassesThrough(t *testing.T) {
	got, err := ExtractMarkup("  " + sampleModel + "\n")
	require.NoError(t, err)
	assert.Equal(t, sampleModel, got)
}

func TestExtractMarkup_Errors(t *testing.T) {
	_, err := ExtractMarkup("data:image/png;base64,iVBORw0KGgo=")
	assert.ErrorIs(t, err, ErrRasterPayload)

	_, err = ExtractMarkup(`<svg xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	assert.ErrorIs(t, err, ErrNoMarkup)

	_, err = ExtractMarkup(`<html/>`)
	assert.ErrorIs(t, err, ErrNoMarkup)

	_, err = ExtractMarkup("")
	assert.ErrorIs(t, err, ErrNoMarkup)
}

func TestDecodeDiagram(t *testing.T) {
	encoded, err := EncodeDiagram(`<mxGraphModel><root><mxCell id="0" value="50% done + more"/></root></mxGraphModel>`)
	require.NoError(t, err)

	decoded, err := DecodeDiagram(encoded)
	require.NoError(t, err)
	assert.Equal(t, `<mxGraphModel><root><mxCell id="0" value="50% done + more"/></root></mxGraphModel>`, decoded)

	plain, err := DecodeDiagram(" <mxGraphModel/> ")
	require.NoError(t, err)
	assert.Equal(t, "<mxGraphModel/>", plain)

	_, err = DecodeDiagram("!!not base64!!")
	assert.Error(t, err)
}

func TestIsRasterPayload(t *testing.T) {
	assert.True(t, IsRasterPayload("data:image/png;base64,AAAA"))
	assert.False(t, IsRasterPayload("<svg/>"))
	assert.False(t, IsRasterPayload("data:image/svg+xml;base64,AAAA"))
}

func TestGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	g.Assert(t, "encode_svg", []byte(EncodeSVG(`<mxGraphModel><root><mxCell id="0"/></root></mxGraphModel>`)))
	g.Assert(t, "wrap_container", []byte(WrapContainer(`<mxGraphModel><root/></mxGraphModel>`)))
}

func TestWrapContainer_LeavesContainerAlone(t *testing.T) {
	assert.Equal(t, EmptyDiagram, WrapContainer(EmptyDiagram))
}
