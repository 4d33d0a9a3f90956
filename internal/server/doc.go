// Package server implements the MCP (Model Context Protocol) server for the
// mass-region tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_dimensions: Get width and height
//   - image_preview: Downscaled base64 PNG of an image
//
// Mass Region Pipeline:
//   - mass_extract_region: Normalize a mask and return its dominant region
//   - mass_process_case: Annotate one case and write <uid>.png
//
// Dataset Preparation:
//   - mass_coco_generate: Propose boxes for a directory and write COCO JSON
//   - mass_coco_to_yolo: Convert COCO JSON to YOLO label files
//
// Detector:
//   - mass_detect: Run the external detector and triage the result
//
// # Image Caching
//
// Masks and inspected images are cached by path for the lifetime of the
// process. Annotated outputs are evicted when a case rewrites them.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A failed case is not a tool error: mass_process_case returns the case
// result with success=false and the error text.
//
// # Usage
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
