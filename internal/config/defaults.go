package config

import "time"

// Acrobat install locations tried when a PDF is opened at a page on Windows.
var defaultPDFReaders = []string{
	`C:\Program Files\Adobe\Acrobat DC\Acrobat\Acrobat.exe`,
	`C:\Program Files (x86)\Adobe\Acrobat Reader DC\Reader\AcroRd32.exe`,
	`C:\Program Files (x86)\Adobe\Acrobat DC\Acrobat\Acrobat.exe`,
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8787
	}
	if cfg.Search.DefaultCount == 0 {
		cfg.Search.DefaultCount = 20
	}
	if cfg.Search.MinInterval == 0 {
		cfg.Search.MinInterval = 100 * time.Millisecond
	}
	if cfg.Search.LockTimeout == 0 {
		cfg.Search.LockTimeout = 5 * time.Second
	}
	if cfg.Search.TrailingDelay == 0 {
		cfg.Search.TrailingDelay = 10 * time.Millisecond
	}
	if cfg.Search.MaxHighlightAttempts == 0 {
		cfg.Search.MaxHighlightAttempts = 11
	}
	if cfg.Search.MaxFilesWithHighlights == 0 {
		cfg.Search.MaxFilesWithHighlights = 7
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "~/.academynomad/index"
	}
	if cfg.Index.Extensions == nil {
		cfg.Index.Extensions = []string{".pdf", ".txt", ".md", ".xlsx", ".docx", ".odt", ".pptx", ".epub", ".djvu"}
	}
	if cfg.Index.ContentExtensions == nil {
		cfg.Index.ContentExtensions = []string{".pdf", ".txt", ".md", ".xlsx", ".docx", ".odt", ".pptx"}
	}
	if cfg.Index.MaxFileSize == 0 {
		cfg.Index.MaxFileSize = 64 << 20
	}
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = 4
	}
	if cfg.Index.FilesPerSecond == 0 {
		cfg.Index.FilesPerSecond = 200
	}
	if cfg.Index.Debounce == 0 {
		cfg.Index.Debounce = 500 * time.Millisecond
	}
	if cfg.Shell.PDFReaders == nil {
		cfg.Shell.PDFReaders = append([]string(nil), defaultPDFReaders...)
	}
	if cfg.MCP.Name == "" {
		cfg.MCP.Name = "academy-nomad"
	}
}
