package pagecacheapi

// Envelope wraps every endpoint response.
type Envelope struct {
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	IsSuccess bool       `json:"isSuccess"`
}

// RenderData describes a served artifact.
type RenderData struct {
	URL         string `json:"url"`
	PsdURL      string `json:"psdUrl"`
	PDFFileName string `json:"pdfFileName"`
	// TimeTaken is the request duration in milliseconds.
	TimeTaken int64 `json:"timeTaken"`
}

// MessageData carries a confirmation message.
type MessageData struct {
	Message string `json:"message"`
}

// ErrorBody contains error details. Cache holds the current index mapping
// when the target parameter was missing.
type ErrorBody struct {
	Message string `json:"message"`
	Cache   any    `json:"cache,omitempty"`
}
