package bridge

// Method describes one request the bridge accepts.
type Method struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	ParamSchema map[string]interface{} `json:"paramSchema,omitempty"`
}

// GetMethodDefinitions returns the methods advertised by initialize.
func GetMethodDefinitions() []Method {
	return []Method{
		{
			Name:        "ping",
			Description: "Health check.",
		},
		{
			Name:        "ocr/submit",
			Description: "Start text recognition of an image in the background. Fails immediately if a recognition is already running or the engine is not ready.",
			ParamSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"drop": map[string]interface{}{
						"type":        "string",
						"description": "Raw drag-and-drop payload; the first file is used",
					},
				},
			},
		},
		{
			Name:        "ocr/state",
			Description: "Return the current text, status and font size, and whether the engine is ready or busy.",
		},
		{
			Name:        "session/clear",
			Description: "Clear the displayed image and text.",
		},
		{
			Name:        "session/copy",
			Description: "Return the current text for the clipboard.",
		},
		{
			Name:        "session/save",
			Description: "Write the current text to a file as UTF-8.",
			ParamSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Destination file path",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "session/fontSize",
			Description: "Set the text pane font size. Values are clamped to 9-98.",
			ParamSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Font size in points",
					},
				},
				"required": []string{"size"},
			},
		},
	}
}
