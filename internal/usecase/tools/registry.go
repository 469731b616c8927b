package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/metrics"
)

// Tool names advertised to the model.
const (
	NameSearch     = "search_web"
	NameMarketSize = "estimate_market_size"
	NameCAGR       = "calculate_cagr"
)

// Tool is a callable function with its model-facing schema.
type Tool struct {
	Spec   domain.ToolSpec
	Invoke func(ctx context.Context, arguments string) (string, error)
}

// Registry resolves tool names to implementations.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry. Later tools with the same name replace earlier ones.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Spec.Name] = t
	}
	return r
}

// Default returns the registry with the search, market-size and CAGR tools.
func Default(searcher domain.ResilientSearcher) *Registry {
	return NewRegistry(SearchTool(searcher), MarketSizeTool(), CAGRTool())
}

// Specs returns the schemas for the named tools in the given order.
func (r *Registry) Specs(names []string) ([]domain.ToolSpec, error) {
	specs := make([]domain.ToolSpec, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q: %w", name, domain.ErrInvalidInput)
		}
		specs = append(specs, t.Spec)
	}
	return specs, nil
}

// Call invokes a tool by name.
func (r *Registry) Call(ctx context.Context, name, arguments string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues("unknown", "error").Inc()
		return "", fmt.Errorf("unknown tool %q", name)
	}
	out, err := t.Invoke(ctx, arguments)
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
		return "", err
	}
	metrics.ToolCallsTotal.WithLabelValues(name, "success").Inc()
	return out, nil
}

// SearchTool exposes the resilient search client. It never fails: search
// errors come back as text the model can read.
func SearchTool(searcher domain.ResilientSearcher) Tool {
	return Tool{
		Spec: domain.ToolSpec{
			Name:        NameSearch,
			Description: "Searches the web for current market information. Input: search query string.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"query":{"type":"string","description":"What to search for"}},"required":["query"]}`),
		},
		Invoke: func(ctx context.Context, arguments string) (string, error) {
			var args struct {
				Query string `json:"query"`
			}
			if err := decodeArgs(arguments, &args); err != nil {
				return "", err
			}
			if args.Query == "" {
				return "", fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
			}
			return searcher.Search(ctx, args.Query).String(), nil
		},
	}
}

// MarketSizeTool exposes EstimateMarketSize.
func MarketSizeTool() Tool {
	return Tool{
		Spec: domain.ToolSpec{
			Name:        NameMarketSize,
			Description: "Estimates market size based on provided data.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"data":{"type":"string","description":"Supporting market data"}},"required":["data"]}`),
		},
		Invoke: func(_ context.Context, arguments string) (string, error) {
			var args struct {
				Data string `json:"data"`
			}
			if err := decodeArgs(arguments, &args); err != nil {
				return "", err
			}
			return EstimateMarketSize(args.Data), nil
		},
	}
}

// CAGRTool exposes CalculateCAGR.
func CAGRTool() Tool {
	return Tool{
		Spec: domain.ToolSpec{
			Name:        NameCAGR,
			Description: "Calculates CAGR given initial value, final value, and number of years.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"initial_value":{"type":"number"},` +
				`"final_value":{"type":"number"},` +
				`"num_years":{"type":"integer"}},` +
				`"required":["initial_value","final_value","num_years"]}`),
		},
		Invoke: func(_ context.Context, arguments string) (string, error) {
			var args struct {
				Initial float64 `json:"initial_value"`
				Final   float64 `json:"final_value"`
				Years   int     `json:"num_years"`
			}
			if err := decodeArgs(arguments, &args); err != nil {
				return "", err
			}
			cagr, err := CalculateCAGR(args.Initial, args.Final, args.Years)
			if err != nil {
				return "", err
			}
			return strconv.FormatFloat(cagr, 'f', -1, 64), nil
		},
	}
}

func decodeArgs(arguments string, v any) error {
	if arguments == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), v); err != nil {
		return fmt.Errorf("decode tool arguments: %w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}
