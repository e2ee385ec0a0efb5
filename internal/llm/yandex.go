package llm

import (
	"context"
	"fmt"

	"github.com/Morwran/yagpt"
)

type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	// Create IAM token from OAuth token
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
	}, nil
}

func (c *YandexClient) Name() string { return "yandex/" + yagpt.YaModelLite }

func (c *YandexClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	ym := make([]yagpt.Message, 0, len(messages))
	for _, m := range messages {
		ym = append(ym, toYandexMessage(m))
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, ym)
	if err != nil {
		return Response{}, fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, fmt.Errorf("yagpt returned empty response")
	}
	out := Response{Content: resp.Alternatives[0].Message.Content, Model: yagpt.YaModelLite}
	out.PromptTokens = int(resp.Usage.InputTextTokens)
	out.CompletionTokens = int(resp.Usage.CompletionTokens)
	out.TotalTokens = int(resp.Usage.TotalTokens)
	return out, nil
}

// Stream has no incremental mode on this API; the whole answer arrives as one delta.
func (c *YandexClient) Stream(ctx context.Context, messages []Message, onDelta DeltaFunc) (Response, error) {
	resp, err := c.Generate(ctx, messages)
	if err != nil {
		return Response{}, err
	}
	if onDelta != nil && resp.Content != "" {
		if err := onDelta(resp.Content); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func toYandexMessage(m Message) yagpt.Message {
	switch m.Role {
	case RoleSystem:
		return yagpt.Message{Role: "system", Content: m.Content}
	case RoleAssistant:
		return yagpt.Message{Role: "assistant", Content: m.Content}
	default:
		return yagpt.Message{Role: "user", Content: m.Content}
	}
}
