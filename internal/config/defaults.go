package config

const (
	defaultDataDir        = "~/.local/share/versemill/data"
	defaultOutputDir      = "~/.local/share/versemill/generated"
	defaultLogDir         = "~/.local/share/versemill/logs"
	defaultCorpusPath     = "~/.local/share/versemill/data/corpus.json"
	defaultMinWords       = 5
	defaultMaxWords       = 18
	defaultVideoWidth     = 1080
	defaultVideoHeight    = 1920
	defaultMaxDuration    = 58
	defaultWordsPerMinute = 150
	defaultSpeechCommand  = "piper"
	defaultSpeechVoice    = "en_US-lessac-medium"

	defaultTokenURL            = "https://oauth2.googleapis.com/token"
	defaultUploadURL           = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultPrivacy             = "public"
	defaultCategoryID          = "22"
	defaultTitleTemplate       = "{reference} | {first_words}"
	defaultDescriptionTemplate = "{text}\n\n{reference} (KJV)"
	defaultDailyQuotaUnits     = 10000
	defaultUploadCost          = 1600
	defaultPublishTimeout      = 300

	defaultGenerationIntervalHours = 2
	defaultBatchSize               = 1
	defaultRetryIntervalHours      = 4
	defaultMaintenanceTime         = "03:00"
	defaultStaleProcessingMinutes  = 120

	defaultMaxAttempts   = 3
	defaultRetentionDays = 7
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			CorpusPath: defaultCorpusPath,
		},
		Corpus: Corpus{
			Books:    []string{"Psalms", "Proverbs", "John", "Matthew", "Philippians", "Romans"},
			MinWords: defaultMinWords,
			MaxWords: defaultMaxWords,
		},
		Video: Video{
			Width:              defaultVideoWidth,
			Height:             defaultVideoHeight,
			MaxDurationSeconds: defaultMaxDuration,
			WordsPerMinute:     defaultWordsPerMinute,
		},
		Speech: Speech{
			Command: defaultSpeechCommand,
			Voice:   defaultSpeechVoice,
		},
		Publish: Publish{
			TokenURL:            defaultTokenURL,
			UploadURL:           defaultUploadURL,
			Privacy:             defaultPrivacy,
			CategoryID:          defaultCategoryID,
			Tags:                []string{"bible", "shorts", "scripture"},
			TitleTemplate:       defaultTitleTemplate,
			DescriptionTemplate: defaultDescriptionTemplate,
			DailyQuotaUnits:     defaultDailyQuotaUnits,
			UploadCost:          defaultUploadCost,
			UploadTimes:         []string{"09:00", "15:00", "21:00"},
			RequestTimeout:      defaultPublishTimeout,
		},
		Scheduler: Scheduler{
			Enabled:                 true,
			GenerationIntervalHours: defaultGenerationIntervalHours,
			BatchSize:               defaultBatchSize,
			RetryIntervalHours:      defaultRetryIntervalHours,
			MaintenanceTime:         defaultMaintenanceTime,
			StaleProcessingMinutes:  defaultStaleProcessingMinutes,
		},
		Retry: Retry{
			MaxAttempts: defaultMaxAttempts,
		},
		Storage: Storage{
			CleanupAfterUpload: true,
			RetentionDays:      defaultRetentionDays,
			KeepFinalVideos:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
