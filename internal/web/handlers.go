package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/valpere/medassist/internal/assistant"
	"github.com/valpere/medassist/internal/generator"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	assistant Answerer
	tpl       Template
	timeout   time.Duration
	logger    *slog.Logger
}

type pageData struct {
	Lang      string
	Question  string
	FocusArea string
	Error     string
	Response  *assistant.Response
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	h.tpl.Execute(w, r, http.StatusOK, pageData{
		Lang:      "en",
		FocusArea: generator.DefaultFocusArea,
	}, h.logger)
}

func (h *Handler) PostAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	req := assistant.NewRequest(r.PostFormValue("question"), r.PostFormValue("focus_area"))
	data := pageData{
		Lang:      "en",
		Question:  r.PostFormValue("question"),
		FocusArea: req.FocusArea,
	}

	resp, err := h.answer(r.Context(), req)
	if err != nil {
		status, msg := statusFor(err)
		h.logFailure(r, status, err)
		data.Error = msg
		h.tpl.Execute(w, r, status, data, h.logger)
		return
	}

	data.Lang = resp.Language
	data.Response = resp
	h.tpl.Execute(w, r, http.StatusOK, data, h.logger)
}

type apiRequest struct {
	Question  string `json:"question"`
	FocusArea string `json:"focus_area"`
}

type apiResponse struct {
	*assistant.Response
	Text string `json:"text"`
}

type apiError struct {
	Error string `json:"error"`
}

func (h *Handler) PostAPIAsk(w http.ResponseWriter, r *http.Request) {
	var in apiRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}

	resp, err := h.answer(r.Context(), assistant.NewRequest(in.Question, in.FocusArea))
	if err != nil {
		status, msg := statusFor(err)
		h.logFailure(r, status, err)
		writeJSON(w, status, apiError{Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Response: resp, Text: resp.Text()})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) answer(ctx context.Context, req assistant.Request) (*assistant.Response, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return h.assistant.Answer(ctx, req)
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("answer_failed", "path", r.URL.Path, "status", status, "err", err)
		return
	}
	h.logger.Debug("answer_rejected", "path", r.URL.Path, "status", status, "err", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
