package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": stringProp("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_preview",
			Description: "Return a downscaled base64-encoded PNG preview of an image, for example an annotated case output.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": stringProp("Absolute path to the image file"),
					"max_side": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of the preview in pixels. Default 1024",
						"default":     1024,
					},
				},
				"required": []string{"path"},
			},
		},

		// Mass Region Pipeline
		{
			Name:        "mass_extract_region",
			Description: "Resize an ROI mask to a target size and return the bounding box of its largest region, or the reason no region was found (empty, no-contours, too-small).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mask_path": stringProp("Absolute path to the ROI mask image"),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Target width, normally the full mammogram width. Default: mask width",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Target height, normally the full mammogram height. Default: mask height",
					},
					"min_area": map[string]interface{}{
						"type":        "number",
						"description": "Smallest accepted region area in square pixels. Default from configuration (100)",
					},
				},
				"required": []string{"mask_path"},
			},
		},
		{
			Name:        "mass_process_case",
			Description: "Draw the regions of every ROI mask onto a full mammogram and write <output_dir>/<uid>.png. Returns the case result with per-mask outcomes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"uid":             stringProp("Case UID, used as the output file name"),
					"full_image_path": stringProp("Absolute path to the full mammogram"),
					"mask_paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Ordered ROI mask paths",
					},
					"output_dir": stringProp("Directory for the annotated image. Default from configuration"),
				},
				"required": []string{"uid", "full_image_path"},
			},
		},

		// Dataset Preparation
		{
			Name:        "mass_coco_generate",
			Description: "Propose candidate mass boxes for every PNG in a directory using adaptive thresholding and write a COCO JSON file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_dir":   stringProp("Directory containing PNG mammograms"),
					"output_file": stringProp("Path of the COCO JSON file to write"),
				},
				"required": []string{"image_dir", "output_file"},
			},
		},
		{
			Name:        "mass_coco_to_yolo",
			Description: "Convert a COCO JSON file to one YOLO label file per image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"coco_path":  stringProp("Path of the COCO JSON file"),
					"output_dir": stringProp("Directory for the .txt label files"),
				},
				"required": []string{"coco_path", "output_dir"},
			},
		},

		// Detector
		{
			Name:        "mass_detect",
			Description: "Send an image to the configured mass detector and return its detections with a HIGH, MEDIUM or LOW review priority.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": stringProp("Absolute path to the mammogram image"),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
