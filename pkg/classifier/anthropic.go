package classifier

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/pkg/anthropic"
)

const systemPrompt = `Você é um analista de due diligence de empresas brasileiras.
Classifique o risco financeiro, reputacional e regulatório da empresa descrita pelo usuário.
Responda somente com um objeto JSON com os campos:
  "risk_level": um de "BAIXO", "MÉDIO", "ALTO", "CRÍTICO"
  "confidence": número entre 0 e 1
  "explanation": uma frase curta em português
  "risk_factors": lista de strings
  "compliance_flags": lista de strings (ex.: "CVM", "BACEN", "lavagem de dinheiro")
  "regulatory_alerts": lista de strings`

type llmClassifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates a classifier that asks a Claude model for the verdict.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64) Classifier {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &llmClassifier{client: client, model: model, maxTokens: maxTokens}
}

func (c *llmClassifier) Name() string { return "anthropic:" + c.model }

func (c *llmClassifier) Classify(ctx context.Context, text string) (*Verdict, error) {
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      anthropic.CachedSystem(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: text}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "classifier: anthropic")
	}
	resp.Usage.LogCost(c.model, "classify")

	out := cleanJSON(resp.Text())
	if out == "" {
		return nil, eris.New("classifier: empty model response")
	}
	return decodeVerdict([]byte(out))
}
