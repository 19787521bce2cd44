package config

// Application constants
const (
	AppName = "galton"

	// EnvPrefix namespaces environment variables (GALTON_LOGGING_LEVEL, ...)
	EnvPrefix = "GALTON"

	DefaultDataDir = "data"
	DefaultLogsDir = "logs"

	// The transcription lists family "136A" last; it is carried as 205
	// until the reindexing stage moves it into place.
	DefaultAnomalousLabel  = "136A"
	DefaultAnomalousFamily = 205

	// Histogram edges: 46 edges, 45 bins of half an inch
	DefaultBinStart = -3.25
	DefaultBinStop  = 19.25
	DefaultBinEdges = 46
)

// Table file names, relative to the output directory
const (
	MasterTableFile         = "galton_family_heights.csv"
	ParentsFile             = "galton_family_heights_parents.csv"
	SonsImputedFile         = "galton_family_heights_sons_imputed.csv"
	DaughtersImputedFile    = "galton_family_heights_daughters_imputed.csv"
	ImputedFinalFile        = "galton_family_heights_imputed_final.csv"
	ImputedReindexedFile    = "galton_family_heights_imputed_reindexed.csv"
	ParentsSonsFile         = "galton_family_heights_parents-sons.csv"
	ParentsDaughtersFile    = "galton_family_heights_parents-daughters.csv"
	StatisticsFile          = "galton_family_heights_statistics.csv"
	HistogramsFile          = "galton_family_heights_histograms.csv"
	ChartsFile              = "galton_family_heights_charts.xlsx"
	MetricsFile             = "galton.prom"
	TraceFile               = "galton-trace.json"
	ManifestFile            = "galton-manifest.json"
)
