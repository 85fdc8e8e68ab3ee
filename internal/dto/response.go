package dto

// UploadInitResponse is the response for upload init and instant upload.
type UploadInitResponse struct {
	Instant    bool   `json:"instant"`
	NeedUpload bool   `json:"need_upload,omitempty"`
	Reason     string `json:"reason,omitempty"`
	AssetID    uint64 `json:"asset_id,omitempty"`
	UploadURL  string `json:"upload_url,omitempty"`
}

// UsageResponse reports quota consumption.
type UsageResponse struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"`
}

// ShareResponse reports a share link id and expiry.
type ShareResponse struct {
	ShareID  string `json:"share_id"`
	ExpireAt string `json:"expire_at,omitempty"`
}
