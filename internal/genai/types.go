package genai

// InlinePart is a base64-encoded media part attached to a text request.
type InlinePart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// SafetySetting is one content-safety threshold forwarded to the backend.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// TextRequest is the input for a text generation call.
type TextRequest struct {
	Prompt          string
	Media           []InlinePart
	Safety          []SafetySetting
	MaxOutputTokens int
}

// TextResponse is the collapsed result of a text generation call.
// BlockReason is non-empty when the backend refused the prompt itself;
// that is terminal and must not be retried.
type TextResponse struct {
	Text        string
	BlockReason string
}

// ImageConfig configures an image generation call.
type ImageConfig struct {
	PersonGeneration string
	AspectRatio      string
	OutputMimeType   string
}

// VideoConfig configures a video generation call.
type VideoConfig struct {
	PersonGeneration string
	DurationSeconds  int
}

// Operation is the handle for an asynchronous video generation job.
// VideoURI is set once Done is true and the job produced output.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}

// wire shapes

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	SafetySettings   []SafetySetting   `json:"safetySettings,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlinePart `json:"inline_data,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type predictRequest struct {
	Instances  []map[string]any `json:"instances"`
	Parameters map[string]any   `json:"parameters,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"predictions"`
}

type operationResponse struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}
