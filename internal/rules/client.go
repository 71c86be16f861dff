package rules

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/httpx"
)

const createRuleMutation = `mutation CreateRule($input: CreateRuleInput!) {
  createRule(input: $input) {
    id
    requestId
    ruleType
    status
    instructions
  }
}`

// Creator is the rule-creation capability the orchestrator depends on.
type Creator interface {
	CreateRule(ctx context.Context, rule TradingRule) (Ack, error)
}

// Client posts CreateRule mutations to the rule service GraphQL endpoint.
type Client struct {
	http     *httpx.Client
	endpoint string
	apiKey   string
}

func NewClient(httpClient *httpx.Client, endpoint, apiKey string) *Client {
	return &Client{http: httpClient, endpoint: strings.TrimSpace(endpoint), apiKey: apiKey}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type createRuleResponse struct {
	Data struct {
		CreateRule *Ack `json:"createRule"`
	} `json:"data"`
	Errors []graphqlError `json:"errors,omitempty"`
}

func (c *Client) CreateRule(ctx context.Context, rule TradingRule) (Ack, error) {
	if c.endpoint == "" {
		return Ack{}, tperr.New(tperr.KindValidation, "rule service endpoint is not configured")
	}
	if err := rule.Validate(); err != nil {
		return Ack{}, err
	}

	input, err := ruleInput(rule)
	if err != nil {
		return Ack{}, err
	}
	body, err := json.Marshal(graphqlRequest{
		Query:     createRuleMutation,
		Variables: map[string]any{"input": input},
	})
	if err != nil {
		return Ack{}, tperr.Wrap(tperr.KindInternal, "marshal rule mutation", err)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	var resp createRuleResponse
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, c.endpoint, body, headers, &resp); err != nil {
		return Ack{}, tperr.Reclassify(tperr.KindRuleCreationFailed, "rule service request", err)
	}
	if len(resp.Errors) > 0 {
		// The GraphQL error array is provider detail; only its first
		// message travels, wrapped in the closed taxonomy.
		return Ack{}, tperr.New(tperr.KindRuleCreationFailed, "rule service error: "+resp.Errors[0].Message)
	}
	if resp.Data.CreateRule == nil || resp.Data.CreateRule.ID == "" {
		return Ack{}, tperr.New(tperr.KindRuleCreationFailed, "rule service returned no rule id")
	}
	return *resp.Data.CreateRule, nil
}

// ruleInput flattens the trigger union into the wire shape the service
// expects: a trigger kind discriminator plus that kind's fields.
func ruleInput(rule TradingRule) (map[string]any, error) {
	input := map[string]any{
		"ruleType":   rule.Type,
		"baseParams": rule.Base,
	}
	switch trig := rule.Trigger.(type) {
	case UserTrigger:
		input["trigger"] = map[string]any{"kind": "USER", "user": trig}
	case GroupTrigger:
		input["trigger"] = map[string]any{"kind": "GROUP", "group": trig}
	default:
		return nil, tperr.New(tperr.KindValidation, "unsupported trigger type")
	}
	if rule.LimitOrder != nil {
		input["limitOrderParams"] = rule.LimitOrder
	}
	return input, nil
}

var _ Creator = (*Client)(nil)
