package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/mass-tools/internal/dataset"
	"github.com/ironsheep/mass-tools/internal/detection"
	"github.com/ironsheep/mass-tools/internal/imaging"
	"github.com/ironsheep/mass-tools/internal/pipeline"
)

// errNoDetector is returned by mass_detect when no inference URL is configured.
var errNoDetector = errors.New("no detector configured; set MASS_TOOLS_INFERENCE_URL")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "mass_process_case").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_preview":
		return s.handleImagePreview(args)

	// Mass Region Pipeline
	case "mass_extract_region":
		return s.handleExtractRegion(args)
	case "mass_process_case":
		return s.handleProcessCase(args)

	// Dataset Preparation
	case "mass_coco_generate":
		return s.handleCOCOGenerate(args)
	case "mass_coco_to_yolo":
		return s.handleCOCOToYOLO(args)

	// Detector
	case "mass_detect":
		return s.handleDetect(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imagePreviewArgs struct {
	Path    string `json:"path"`
	MaxSide int    `json:"max_side"`
}

func (s *Server) handleImagePreview(args json.RawMessage) (interface{}, error) {
	var a imagePreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MaxSide == 0 {
		a.MaxSide = 1024
	}
	// Outputs change between calls, so previews bypass the cache.
	img, err := imaging.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Preview(img, a.MaxSide)
}

// === Mass Region Pipeline Handlers ===

type extractRegionArgs struct {
	MaskPath string   `json:"mask_path"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	MinArea  *float64 `json:"min_area"`
}

func (s *Server) handleExtractRegion(args json.RawMessage) (interface{}, error) {
	var a extractRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	mask, err := s.cache.Load(a.MaskPath)
	if err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = mask.Bounds().Dx()
	}
	if a.Height == 0 {
		a.Height = mask.Bounds().Dy()
	}

	minArea := s.cfg.EffectiveMinArea()
	if a.MinArea != nil && *a.MinArea >= 0 {
		minArea = *a.MinArea
	}

	gray, err := imaging.NormalizeMask(mask, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	return detection.NewExtractor(s.finder, minArea).Extract(gray), nil
}

type processCaseArgs struct {
	UID           string   `json:"uid"`
	FullImagePath string   `json:"full_image_path"`
	MaskPaths     []string `json:"mask_paths"`
	OutputDir     string   `json:"output_dir"`
}

func (s *Server) handleProcessCase(args json.RawMessage) (interface{}, error) {
	var a processCaseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.OutputDir == "" {
		a.OutputDir = s.cfg.Annotate.OutputDir
	}

	agg := pipeline.NewAggregator(a.OutputDir, pipeline.Options{
		MinArea: pipeline.ExactMinArea(s.cfg.EffectiveMinArea()),
		Style:   s.style,
		Finder:  s.finder,
		Verbose: s.cfg.Annotate.Verbose,
	})
	res := agg.ProcessCase(s.ctx, pipeline.CaseRecord{
		UID:           a.UID,
		FullImagePath: a.FullImagePath,
		MaskPaths:     a.MaskPaths,
	})
	if res.Success {
		s.cache.Evict(res.OutputPath)
	}
	return res, nil
}

// === Dataset Preparation Handlers ===

type cocoGenerateArgs struct {
	ImageDir   string `json:"image_dir"`
	OutputFile string `json:"output_file"`
}

type cocoGenerateResult struct {
	OutputFile string           `json:"output_file"`
	Stats      dataset.BoxStats `json:"stats"`
}

func (s *Server) handleCOCOGenerate(args json.RawMessage) (interface{}, error) {
	var a cocoGenerateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	opts := dataset.DefaultGenerateOptions()
	opts.Boxes = s.cfg.COCO.Boxes
	opts.Description = s.cfg.COCO.Description
	opts.Version = s.cfg.COCO.Version
	opts.Category = s.cfg.COCO.Category
	opts.Finder = s.finder

	doc, err := dataset.GenerateCOCO(s.ctx, a.ImageDir, opts)
	if err != nil {
		return nil, err
	}
	if err := dataset.WriteCOCO(doc, a.OutputFile); err != nil {
		return nil, err
	}
	return &cocoGenerateResult{OutputFile: a.OutputFile, Stats: doc.Stats()}, nil
}

type cocoToYOLOArgs struct {
	COCOPath  string `json:"coco_path"`
	OutputDir string `json:"output_dir"`
}

func (s *Server) handleCOCOToYOLO(args json.RawMessage) (interface{}, error) {
	var a cocoToYOLOArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	n, err := dataset.ConvertCOCOFile(a.COCOPath, a.OutputDir)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output_dir": a.OutputDir, "label_files": n}, nil
}

// === Detector Handlers ===

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.detector == nil {
		return nil, errNoDetector
	}
	return s.detector.Detect(s.ctx, a.Path)
}
