// Package bedrock implements model.Provider for Amazon Bedrock's Converse API.
//
// Authentication is handled by the AWS SDK v2 credential chain:
//  1. AWS_ACCESS_KEY_ID + AWS_SECRET_ACCESS_KEY (+ optional AWS_SESSION_TOKEN)
//  2. AWS_PROFILE — named profile from ~/.aws/credentials
//  3. ~/.aws/credentials default profile
//  4. IAM instance roles / ECS task roles / IRSA
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brdoc "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/Tendo33/AgentTracks/pkg/model"
)

// Provider talks to Amazon Bedrock.
type Provider struct {
	Region  string
	Profile string
}

func New(region, profile string) *Provider {
	return &Provider{Region: region, Profile: profile}
}

func (p *Provider) Name() string { return "bedrock" }

func (p *Provider) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("bedrock: build client: %w", err)
	}

	input, err := buildInput(req)
	if err != nil {
		return nil, fmt.Errorf("bedrock: build input: %w", err)
	}

	out, err := client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock: Converse: %w", err)
	}

	msg := model.Message{Role: model.RoleAssistant, Timestamp: time.Now().UnixMilli()}
	if m, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range m.Value.Content {
			switch b := block.(type) {
			case *types.ContentBlockMemberText:
				if msg.Content != "" {
					msg.Content += "\n"
				}
				msg.Content += b.Value
			case *types.ContentBlockMemberToolUse:
				var args map[string]any
				if b.Value.Input != nil {
					_ = b.Value.Input.UnmarshalSmithyDocument(&args)
				}
				msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
					ID:        aws.ToString(b.Value.ToolUseId),
					Name:      aws.ToString(b.Value.Name),
					Arguments: args,
				})
			}
		}
	}

	resp := &model.Response{
		Message:    msg,
		StopReason: mapStopReason(out.StopReason),
	}
	if out.Usage != nil {
		resp.Usage = model.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}

func (p *Provider) newClient(ctx context.Context) (*bedrockruntime.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if p.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(p.Region))
	}
	if p.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(p.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

func buildInput(req model.Request) (*bedrockruntime.ConverseInput, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
	}

	if req.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.SystemPrompt},
		}
	}

	ic := &types.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		v := int32(req.MaxTokens)
		ic.MaxTokens = &v
	}
	if req.Temperature != nil {
		v := float32(*req.Temperature)
		ic.Temperature = &v
	}
	input.InferenceConfig = ic

	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input.Messages = msgs

	if len(req.Tools) > 0 {
		toolList := make([]types.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			var schema map[string]any
			_ = json.Unmarshal(t.Parameters, &schema)
			toolList = append(toolList, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(t.Name),
					Description: aws.String(t.Description),
					InputSchema: &types.ToolInputSchemaMemberJson{
						Value: brdoc.NewLazyDocument(schema),
					},
				},
			})
		}
		input.ToolConfig = &types.ToolConfiguration{
			Tools:      toolList,
			ToolChoice: &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}},
		}
	}

	return input, nil
}

func convertMessages(msgs []model.Message) ([]types.Message, error) {
	var out []types.Message
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			out = append(out, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})

		case model.RoleAssistant:
			var blocks []types.ContentBlock
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				inputMap := tc.Arguments
				if inputMap == nil {
					inputMap = map[string]any{}
				}
				blocks = append(blocks, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     brdoc.NewLazyDocument(inputMap),
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: blocks})

		case model.RoleTool:
			status := types.ToolResultStatusSuccess
			if m.IsError {
				status = types.ToolResultStatusError
			}
			block := &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(m.ToolCallID),
					Status:    status,
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: m.Content},
					},
				},
			}
			// Bedrock requires all tool results in the same user message.
			if len(out) > 0 && out[len(out)-1].Role == types.ConversationRoleUser {
				out[len(out)-1].Content = append(out[len(out)-1].Content, block)
			} else {
				out = append(out, types.Message{
					Role:    types.ConversationRoleUser,
					Content: []types.ContentBlock{block},
				})
			}

		default:
			return nil, fmt.Errorf("bedrock: unsupported message role: %q", m.Role)
		}
	}
	return out, nil
}

func mapStopReason(r types.StopReason) model.StopReason {
	switch r {
	case types.StopReasonEndTurn:
		return model.StopEnd
	case types.StopReasonMaxTokens:
		return model.StopLength
	case types.StopReasonToolUse:
		return model.StopToolUse
	default:
		return model.StopEnd
	}
}
