package pipeline

import (
	"fmt"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/usecase/tools"
)

// Stage names, in execution order. They double as report keys.
const (
	StageMarketAnalysis     = "market_analysis"
	StageCompetitorAnalysis = "competitor_analysis"
)

var marketAnalyst = domain.AgentProfile{
	Role:      "Market Research Analyst",
	Goal:      "Research and analyze market size, growth rate, and competitive landscape",
	Backstory: "Expert in market research and financial analysis with a focus on AI and technology markets.",
	Tools:     []string{tools.NameSearch, tools.NameMarketSize, tools.NameCAGR},
}

var competitorAnalyst = domain.AgentProfile{
	Role:      "Competitor Research Specialist",
	Goal:      "Analyze startup and AI startup competitors, providing detailed insights including total capital raised",
	Backstory: "Expert in competitive analysis with deep knowledge of the AI startup ecosystem.",
	Tools:     []string{tools.NameSearch},
}

// BuildStages returns the fixed stage list for subject. Only the subject varies between runs.
func BuildStages(subject string) []domain.Stage {
	return []domain.Stage{
		{
			Name: StageMarketAnalysis,
			Instruction: fmt.Sprintf(`Analyze the market size and growth for %s.
1. Estimate total market size and growth rate (CAGR).
2. Estimate the total number of potential customers in the target market.
3. Identify the top 3 players and their market shares.
4. List 3 key growth drivers.
Provide a concise report with clear data points and sources.`, subject),
			ExpectedOutput: `A detailed market analysis report including:
1. Total market size with CAGR
2. Total number of potential customers
3. Top 3 players and their market shares
4. 3 key growth drivers
All with supporting data and sources.`,
			Agent: marketAnalyst,
		},
		{
			Name: StageCompetitorAnalysis,
			Instruction: fmt.Sprintf(`Analyze the competitive landscape for %s.
1. Identify 3-5 main AI startup competitors.
2. For each competitor, provide:
   - Total funding and capital raised (total across all rounds, not just the latest round)
   - Primary offerings and technologies
   - Market position and traction
   - Recent developments
   - Strengths and weaknesses
Provide a detailed competitor analysis with clear comparisons.`, subject),
			ExpectedOutput: `A comprehensive competitor analysis including:
1. Overview of 3-5 main AI startup competitors
2. For each competitor:
   - Total funding and capital raised
   - Offerings and technologies
   - Current market position and traction metrics
   - Recent significant developments
   - Strengths and weaknesses
With a clear comparison between competitors.`,
			Agent: competitorAnalyst,
		},
	}
}
