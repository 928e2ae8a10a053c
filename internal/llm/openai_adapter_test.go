package llm

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("you check diagrams"),
		{Role: schema.Assistant},
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: "check this"},
				{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: "data:image/png;base64,AAAA"}},
				{Type: schema.ChatMessagePartTypeImageURL},
			},
		},
	}

	out := convertMessages(msgs)
	require.Len(t, out, 2)

	assert.Equal(t, openai.ChatMessageRoleSystem, out[0].Role)
	assert.Equal(t, "you check diagrams", out[0].Content)

	user := out[1]
	assert.Equal(t, openai.ChatMessageRoleUser, user.Role)
	assert.Empty(t, user.Content)
	require.Len(t, user.MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, user.MultiContent[0].Type)
	assert.Equal(t, "check this", user.MultiContent[0].Text)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, user.MultiContent[1].Type)
	require.NotNil(t, user.MultiContent[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,AAAA", user.MultiContent[1].ImageURL.URL)
}
