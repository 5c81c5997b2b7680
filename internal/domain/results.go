package domain

// TranscriptionResult is the terminal record for one transcription request.
type TranscriptionResult struct {
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

// DownloadResult reports the outcome of one model download request.
type DownloadResult struct {
	Model      string `json:"model"`
	Downloaded bool   `json:"downloaded"`
	Error      string `json:"error,omitempty"`
	Success    bool   `json:"success"`
}

// ModelStatus reports local availability and on-disk size for one model.
type ModelStatus struct {
	Model      string `json:"model"`
	Downloaded bool   `json:"downloaded"`
	SizeMB     *int   `json:"size_mb"`
	Error      string `json:"error,omitempty"`
	Success    bool   `json:"success"`
}

// ModelListEntry is one catalog row in the list operation output.
type ModelListEntry struct {
	Model       string `json:"model"`
	Downloaded  bool   `json:"downloaded"`
	SizeMB      *int   `json:"size_mb"`
	EnglishOnly bool   `json:"english_only"`
	Success     bool   `json:"success"`
}

// ModelList aggregates the full catalog with per-model status.
type ModelList struct {
	Models  []ModelListEntry `json:"models"`
	Success bool             `json:"success"`
}

// DeleteResult reports the outcome of removing a model from the local cache.
type DeleteResult struct {
	Model   string `json:"model"`
	Deleted bool   `json:"deleted"`
	FreedMB int    `json:"freed_mb"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// FFmpegStatus answers the audio tooling capability probe.
type FFmpegStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version"`
	Success   bool   `json:"success"`
}
