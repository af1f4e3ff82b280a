package contracts

// Pipeline names (SSOT)
// Every log line, execution record and API route uses these constants.
//
// Pipelines:
//
//	analysis:  LoadPortfolio → DiscoverNewTickers → FetchMarketData → CalculateIndicators
//	           → ScoreFundamentals → EvaluateTechnicalScores → GenerateSignals → LogSignals
//	autotrade: CheckAutoTradePermission → LoadSignals → ValidateTradeLimits
//	           → CalculateTradeVolume → PlaceOrders → UpdatePortfolio → LogExecutedTrades
const (
	PipelineAnalysis         = "analysis"
	PipelineAutoTrade        = "autotrade"
	PipelineAutoTradePreview = "autotrade-preview"
)

// RunStatus is the lifecycle state of a pipeline run or of a single step.
// Transitions: NotStarted → Running → {Completed | Failed}
type RunStatus string

const (
	StatusNotStarted RunStatus = "NOT_STARTED"
	StatusRunning    RunStatus = "RUNNING"
	StatusCompleted  RunStatus = "COMPLETED"
	StatusFailed     RunStatus = "FAILED"
)

// String returns the status name
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
