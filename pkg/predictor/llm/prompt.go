package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

const systemPrompt = `You are a numeric sequence forecasting engine.
Inputs are windows of quantized price-change values normalized into [0, 1].
Given an input window, respond with the next %d values of the primary sequence.
Respond with JSON only, in the shape {"values": [0.45, 0.54, ...]}.
Every value must lie in [0, 1]. No prose, no explanations.`

type exchangePayload struct {
	Values []float64 `json:"values"`
}

func buildMessages(examples []window.Example, input []float64, outputSize int) ([]openai.ChatCompletionMessageParamUnion, error) {
	if outputSize <= 0 {
		return nil, errors.New("output size must be positive")
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2+2*len(examples))
	msgs = append(msgs, openai.SystemMessage(fmt.Sprintf(systemPrompt, outputSize)))

	for _, ex := range examples {
		in, err := json.Marshal(exchangePayload{Values: ex.Input})
		if err != nil {
			return nil, fmt.Errorf("encode example input: %w", err)
		}
		out, err := json.Marshal(exchangePayload{Values: ex.Output})
		if err != nil {
			return nil, fmt.Errorf("encode example output: %w", err)
		}
		msgs = append(msgs, openai.UserMessage(string(in)))
		msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(string(out)))
	}

	in, err := json.Marshal(exchangePayload{Values: input})
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	msgs = append(msgs, openai.UserMessage(string(in)))
	return msgs, nil
}

func jsonObjectFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	val := shared.NewResponseFormatJSONObjectParam()
	return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &val}
}

// parsePrediction decodes the model response into a prediction vector of the
// expected length. A bare JSON array is accepted alongside the documented
// object shape.
func parsePrediction(content string, outputSize int) ([]float64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty completion content")
	}

	var payload exchangePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Values == nil {
		var bare []float64
		if err2 := json.Unmarshal([]byte(content), &bare); err2 != nil {
			return nil, fmt.Errorf("decode prediction %q", content)
		}
		payload.Values = bare
	}
	if len(payload.Values) != outputSize {
		return nil, fmt.Errorf("prediction has %d values, want %d", len(payload.Values), outputSize)
	}
	return payload.Values, nil
}
