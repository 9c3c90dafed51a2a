package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/campus/internal/pipeline"
	payloadschema "horse.fit/campus/schema"
)

func (s *Server) handleStatus(c echo.Context) error {
	return success(c, s.runner.Status())
}

func (s *Server) handleCheckpoint(c echo.Context) error {
	view, err := s.runner.Checkpoint(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("checkpoint query failed")
		return internalError(c, "Failed to compute checkpoint")
	}
	return success(c, view)
}

func (s *Server) handleRun(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	request, err := payloadschema.ValidateRunRequest(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	opts, err := runOptions(request)
	if err != nil {
		return failValidation(c, map[string]string{"resume_from_kind": err.Error()})
	}

	result, runErr := s.runner.Run(c.Request().Context(), opts)
	switch {
	case runErr == nil:
		return success(c, result)
	case errors.Is(runErr, pipeline.ErrRunInProgress):
		return fail(c, http.StatusConflict, "A pipeline run is already in progress", nil)
	case errors.Is(runErr, pipeline.ErrCatalogEmpty):
		return fail(c, http.StatusUnprocessableEntity, "Canonical catalog is empty", result)
	default:
		s.logger.Error().Err(runErr).Msg("pipeline run failed")
		return internalError(c, "Pipeline run failed")
	}
}

func (s *Server) handlePause(c echo.Context) error {
	if err := s.runner.Pause(); err != nil {
		return controlConflict(c, err)
	}
	return success(c, s.runner.Status())
}

func (s *Server) handleResume(c echo.Context) error {
	if err := s.runner.Resume(); err != nil {
		return controlConflict(c, err)
	}
	return success(c, s.runner.Status())
}

func (s *Server) handleStop(c echo.Context) error {
	if err := s.runner.Stop(); err != nil {
		return controlConflict(c, err)
	}
	return success(c, s.runner.Status())
}

func (s *Server) handleReset(c echo.Context) error {
	if err := s.runner.Reset(); err != nil {
		return controlConflict(c, err)
	}
	return success(c, s.runner.Status())
}

func controlConflict(c echo.Context, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrNotRunning),
		errors.Is(err, pipeline.ErrNotPaused),
		errors.Is(err, pipeline.ErrRunActive):
		return fail(c, http.StatusConflict, err.Error(), nil)
	default:
		return internalError(c, "Pipeline control failed")
	}
}

func runOptions(request *payloadschema.RunRequest) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	if request.ClearExisting != nil {
		opts.ClearExisting = *request.ClearExisting
	}
	if request.OnlyUnmatched != nil {
		opts.OnlyUnmatched = *request.OnlyUnmatched
	}
	if request.ResumeFromKind != nil {
		kind, err := pipeline.ParseKind(*request.ResumeFromKind)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.ResumeFromKind = kind
		opts.ResumeFromID = request.ResumeFromID
	}
	return opts, nil
}
