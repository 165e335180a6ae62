package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema_description:"The command to execute: GetLatest, GetSummary or GeneralQuery"`
	UserMessage string `json:"user_message" jsonschema_description:"A message to show back to the user in their original language"`
}

// WeatherAgent defines the interface for interpreting free-text weather
// questions.
type WeatherAgent interface {
	InterpretUserQuery(ctx context.Context, userMessage string, stations []string) (*AgentResponse, error)
}

type weatherAgentImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewWeatherAgent creates and initializes a new WeatherAgent. Requires
// OPENAI_API_KEY.
func NewWeatherAgent() (WeatherAgent, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AgentResponse]()

	return &weatherAgentImpl{
		client: client,
		schema: schema,
	}, nil
}

// InterpretUserQuery sends a message to the OpenAI agent and returns
// the structured response.
func (s *weatherAgentImpl) InterpretUserQuery(ctx context.Context, userMessage string, stations []string) (*AgentResponse, error) {
	systemPrompt := fmt.Sprintf(`You are a friendly assistant for a weather dashboard built on INMET
(Brazil's national meteorology institute) historical data for the
automatic stations: %s.

You understand Portuguese, English and Spanish and always answer in the
language the user wrote in.

Behavior:
1. If the user wants the most recent observation (current temperature,
   humidity, rain, wind...): command_name = "GetLatest", user_message a
   one-line confirmation.
2. If the user wants aggregate or historical figures (averages, totals,
   date coverage): command_name = "GetSummary", user_message a one-line
   confirmation.
3. Anything else (greetings, small talk, off-topic): command_name =
   "GeneralQuery", user_message a short helpful reply pointing at the
   available commands.

Output **strictly** in JSON.`, stations)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing the command to run and a user-facing message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})
	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &agentResp); err != nil {
		slog.Error("failed to unmarshal agent response", "error", err, "raw", chat.Choices[0].Message.Content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}

	return &agentResp, nil
}
