package config

// Settings is the subset of the config that's safe to show to an admin.
type Settings struct {
	WatchlistIntervalMinutes int    `json:"watchlist_interval_minutes"`
	WorkerProcesses          int    `json:"worker_processes"`
	ImportPath               string `json:"import_path"`
	OllamaEnabled            bool   `json:"ollama_enabled"`
	OllamaModel              string `json:"ollama_model"`
	ScraperCacheEnabled      bool   `json:"scraper_cache_enabled"`
	ScraperRequestsPerMinute int    `json:"scraper_requests_per_minute"`
	Version                  string `json:"version"`
}

type Service struct {
	config *Config
}

func NewService(cfg *Config) *Service {
	return &Service{config: cfg}
}

func (s *Service) RetrieveSettings(version string) *Settings {
	return &Settings{
		WatchlistIntervalMinutes: s.config.WatchlistIntervalMinutes,
		WorkerProcesses:          s.config.WorkerProcesses,
		ImportPath:               s.config.ImportPath,
		OllamaEnabled:            s.config.OllamaEnabled(),
		OllamaModel:              s.config.OllamaModel,
		ScraperCacheEnabled:      s.config.RedisURL != "",
		ScraperRequestsPerMinute: s.config.ScraperRequestsPerMinute,
		Version:                  version,
	}
}
