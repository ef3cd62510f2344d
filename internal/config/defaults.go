package config

const (
	defaultDataDir                = "~/.local/share/cinereco/datasets"
	defaultLogDir                 = "~/.local/share/cinereco/logs"
	defaultTMDBBaseURL            = "https://api.themoviedb.org/3"
	defaultTMDBLanguage           = "fr-FR"
	defaultStartYear              = 1990
	defaultMinVoteAverage         = 5.0
	defaultMinVoteCount           = 100
	defaultMinRuntime             = 60
	defaultMaxRuntime             = 240
	defaultExcludedGenres         = "99"
	defaultKeywordsMax            = 10
	defaultActorsMax              = 5
	defaultRequestTimeout         = 30
	defaultWindowDays             = 30
	defaultMaxPages               = 500
	defaultPageConcurrency        = 20
	defaultDetailConcurrency      = 40
	defaultLaunchIntervalMillis   = 10
	defaultMaxAttempts            = 8
	defaultInitialBackoffSeconds  = 10
	defaultMaxBackoffSeconds      = 120
	defaultBreakerFailures        = 5
	defaultBreakerCooldownSeconds = 60
	defaultDatasetKind            = "machine_learning"
	defaultNeighbors              = 6
	defaultTopN                   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:        defaultTMDBBaseURL,
			Language:       defaultTMDBLanguage,
			StartYear:      defaultStartYear,
			MinVoteAverage: defaultMinVoteAverage,
			MinVoteCount:   defaultMinVoteCount,
			MinRuntime:     defaultMinRuntime,
			MaxRuntime:     defaultMaxRuntime,
			ExcludedGenres: defaultExcludedGenres,
			KeywordsMax:    defaultKeywordsMax,
			ActorsMax:      defaultActorsMax,
			RequestTimeout: defaultRequestTimeout,
		},
		Fetch: Fetch{
			WindowDays:             defaultWindowDays,
			MaxPages:               defaultMaxPages,
			PageConcurrency:        defaultPageConcurrency,
			DetailConcurrency:      defaultDetailConcurrency,
			LaunchIntervalMillis:   defaultLaunchIntervalMillis,
			MaxAttempts:            defaultMaxAttempts,
			InitialBackoffSeconds:  defaultInitialBackoffSeconds,
			MaxBackoffSeconds:      defaultMaxBackoffSeconds,
			BreakerFailures:        defaultBreakerFailures,
			BreakerCooldownSeconds: defaultBreakerCooldownSeconds,
		},
		Dataset: Dataset{
			Kind: defaultDatasetKind,
		},
		Recommend: Recommend{
			Neighbors: defaultNeighbors,
			TopN:      defaultTopN,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
