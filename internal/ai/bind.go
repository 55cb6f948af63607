package ai

import "context"

// ChatCompleter binds a Client to a fixed chat config so consumers only see
// a (messages) -> completion call.
type ChatCompleter struct {
	Client *Client
	Config ChatConfig
}

func (c ChatCompleter) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return c.Client.Complete(ctx, c.Config, messages)
}

// TextEmbedder binds a Client to a fixed embedding config.
type TextEmbedder struct {
	Client *Client
	Config EmbeddingConfig
}

func (e TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.Client.Embed(ctx, e.Config, text)
}
