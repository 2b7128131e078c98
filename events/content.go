package events

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ContentType string

const (
	ContentInputText  ContentType = "input_text"
	ContentInputAudio ContentType = "input_audio"
	ContentText       ContentType = "text"
	ContentAudio      ContentType = "audio"
)

// ContentPart is one element of a conversation item. Type is the
// discriminator; exactly the payload field matching it is populated.
// Audio payloads are kept base64 encoded, as they travel on the wire.
type ContentPart struct {
	Type       ContentType `json:"type"`
	Text       string      `json:"text,omitempty"`
	Audio      string      `json:"audio,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
}

func InputText(text string) ContentPart {
	return ContentPart{Type: ContentInputText, Text: text}
}

func InputAudio(pcm []byte) ContentPart {
	return ContentPart{Type: ContentInputAudio, Audio: base64.StdEncoding.EncodeToString(pcm)}
}

func Text(text string) ContentPart {
	return ContentPart{Type: ContentText, Text: text}
}

// Audio builds an assistant audio part; transcript may be empty.
func Audio(pcm []byte, transcript string) ContentPart {
	return ContentPart{
		Type:       ContentAudio,
		Audio:      base64.StdEncoding.EncodeToString(pcm),
		Transcript: transcript,
	}
}

// Validate checks that the populated payload matches the tag.
func (p ContentPart) Validate() error {
	switch p.Type {
	case ContentInputText, ContentText:
		if p.Audio != "" {
			return fmt.Errorf("content part %q carries audio", p.Type)
		}
	case ContentInputAudio, ContentAudio:
		if p.Text != "" {
			return fmt.Errorf("content part %q carries text", p.Type)
		}
		if p.Audio == "" {
			return fmt.Errorf("content part %q has no audio", p.Type)
		}
	case "":
		return fmt.Errorf("content part has no type")
	default:
		return fmt.Errorf("unknown content part type %q", p.Type)
	}
	return nil
}

// AudioBytes decodes the audio payload.
func (p ContentPart) AudioBytes() ([]byte, error) {
	if p.Type != ContentInputAudio && p.Type != ContentAudio {
		return nil, fmt.Errorf("content part %q has no audio", p.Type)
	}
	return base64.StdEncoding.DecodeString(p.Audio)
}

func (p ContentPart) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	type plain ContentPart
	return json.Marshal(plain(p))
}

// ConversationItem is the inner “item” object.
type ConversationItem struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    Role          `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

func NewMessage(role Role, parts ...ContentPart) ConversationItem {
	return ConversationItem{
		Type:    "message",
		Role:    role,
		Content: parts,
	}
}

func NewFunctionCallOutput(callID, output string) ConversationItem {
	return ConversationItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}
}
