package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.KnowledgeBasePath == "" {
		cfg.Storage.KnowledgeBasePath = "/usr/local/var/kotae/data/knowledge_base.json"
	}
	if cfg.Storage.ModelDir == "" {
		cfg.Storage.ModelDir = "/usr/local/var/kotae/data/models"
	}
	if cfg.Storage.ModelBase == "" {
		cfg.Storage.ModelBase = "qa_model"
	}
	if cfg.Storage.ScheduleDBPath == "" {
		cfg.Storage.ScheduleDBPath = "/usr/local/var/kotae/data/db/schedules.db"
	}
	if cfg.Engine.CacheSize == 0 {
		cfg.Engine.CacheSize = 1000
	}
	if cfg.Training.Epochs == 0 {
		cfg.Training.Epochs = 10
	}
	if cfg.Training.BatchSize == 0 {
		cfg.Training.BatchSize = 32
	}
	if cfg.Training.LearningRate == 0 {
		cfg.Training.LearningRate = 0.001
	}
	if cfg.Training.MaxSeqLen == 0 {
		cfg.Training.MaxSeqLen = 100
	}
	if cfg.Training.MinTokenFreq == 0 {
		cfg.Training.MinTokenFreq = 1
	}
}
