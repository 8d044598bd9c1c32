// Package v1 implements the versioned HTTP API for conversion runs.
package v1

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/aditya-xq/PicToWebP/pkg/convexec"
	"github.com/aditya-xq/PicToWebP/pkg/server/api"
)

// ConversionRequest is the payload for starting a run. Accepted as JSON or
// as an HTML form submission (source_folder, quality, threads fields).
type ConversionRequest struct {
	SourceFolder string `json:"source_folder"`
	OutputFolder string `json:"output_folder,omitempty"`
	Quality      *int   `json:"quality,omitempty"`
	Threads      *int   `json:"threads,omitempty"`
	ReencodeWebP bool   `json:"reencode_webp,omitempty"`
	CleanOutput  bool   `json:"clean_output,omitempty"`
}

// StartConversionHandler handles POST /api/v1/conversions
//
// Starts a conversion run in the background and returns immediately.
//
// Response format (202 Accepted):
//
//	{
//	  "id": "b2f1c9e4-...",
//	  "message": "Conversion started"
//	}
//
// Returns 400 for a missing or invalid source folder, out-of-range quality,
// or a non-positive thread count.
func StartConversionHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, herr := parseConversionRequest(r)
		if herr != nil {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", herr.code, herr.message)
			return
		}

		params := convexec.Params{
			SourceDir:    req.SourceFolder,
			OutputDir:    req.OutputFolder,
			ReencodeWebP: req.ReencodeWebP,
			CleanOutput:  req.CleanOutput,
		}
		if req.Quality != nil {
			params.Quality = *req.Quality
		} else {
			params.Quality = deps.Defaults.Quality
		}
		if req.Threads != nil {
			params.Threads = *req.Threads
		} else {
			params.Threads = deps.Defaults.Threads
		}
		params.JobTimeout = deps.Defaults.JobTimeout

		run, err := api.StartRun(deps, params)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusAccepted, map[string]string{
			"id":      run,
			"message": "Conversion started",
		})
	}
}

// ListConversionsHandler handles GET /api/v1/conversions
//
// Returns all known runs, newest first:
//
//	{"conversions": [...], "total": 2}
func ListConversionsHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := deps.Registry.List()
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"conversions": records,
			"total":       len(records),
		})
	}
}

// GetConversionHandler handles GET /api/v1/conversions/{id}
//
// Returns the run record including current stats. 404 for an unknown run.
func GetConversionHandler(deps *api.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "RUN_ID_REQUIRED", "run id is required")
			return
		}

		record, err := deps.Registry.Get(id)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, record)
	}
}

type handlerError struct {
	code    string
	message string
}

// parseConversionRequest accepts either a JSON body or an HTML form and
// validates the inputs. Quality and threads stay optional; when present they
// must be numeric and in range.
func parseConversionRequest(r *http.Request) (*ConversionRequest, *handlerError) {
	var req ConversionRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, &handlerError{"INVALID_BODY", "request body is not valid JSON"}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, &handlerError{"INVALID_BODY", "request body is not a valid form"}
		}
		req.SourceFolder = r.PostFormValue("source_folder")
		req.OutputFolder = r.PostFormValue("output_folder")
		req.ReencodeWebP = cast.ToBool(r.PostFormValue("reencode_webp"))
		req.CleanOutput = cast.ToBool(r.PostFormValue("clean_output"))

		if v := r.PostFormValue("quality"); v != "" {
			q, err := cast.ToIntE(v)
			if err != nil {
				return nil, &handlerError{"INVALID_QUALITY", "quality must be a numeric value"}
			}
			req.Quality = &q
		}
		if v := r.PostFormValue("threads"); v != "" {
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, &handlerError{"INVALID_THREADS", "threads must be a numeric value"}
			}
			req.Threads = &n
		}
	}

	if req.SourceFolder == "" {
		return nil, &handlerError{"SOURCE_FOLDER_REQUIRED", "source_folder is required"}
	}
	info, err := os.Stat(req.SourceFolder)
	if err != nil || !info.IsDir() {
		return nil, &handlerError{"INVALID_SOURCE_FOLDER", "source folder is not valid"}
	}
	if req.Quality != nil && (*req.Quality < 0 || *req.Quality > 100) {
		return nil, &handlerError{"INVALID_QUALITY", "quality must be between 0 and 100"}
	}
	if req.Threads != nil && *req.Threads < 1 {
		return nil, &handlerError{"INVALID_THREADS", "threads must be at least 1"}
	}

	return &req, nil
}
