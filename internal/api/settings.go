package api

import (
	"net/http"

	errs "github.com/jdholdren/sweep/internal/errors"
	"github.com/jdholdren/sweep/internal/sweep"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) error {
	values, err := s.repo.Settings(r.Context(), sweep.SettingKeys())
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, sweep.SettingsFrom(values))
}

// Either threshold may be left out to keep its current value.
type putSettingsReq struct {
	DaysUntilRead   *int `json:"daysUntilRead"`
	DaysUntilDelete *int `json:"daysUntilDelete"`
}

// The relative order of the two thresholds is not enforced.
func (req putSettingsReq) Validate() error {
	if req.DaysUntilRead == nil && req.DaysUntilDelete == nil {
		return errs.E(http.StatusBadRequest, "no settings given")
	}

	var details []errs.Detail
	if req.DaysUntilRead != nil && *req.DaysUntilRead < 1 {
		details = append(details, errs.Detail{Field: "daysUntilRead", Error: "must be a positive number of days"})
	}
	if req.DaysUntilDelete != nil && *req.DaysUntilDelete < 1 {
		details = append(details, errs.Detail{Field: "daysUntilDelete", Error: "must be a positive number of days"})
	}
	if len(details) > 0 {
		return errs.E(http.StatusUnprocessableEntity, "invalid settings", details)
	}

	return nil
}

func (req putSettingsReq) values() map[string]int {
	values := map[string]int{}
	if req.DaysUntilRead != nil {
		values[sweep.KeyDaysUntilRead] = *req.DaysUntilRead
	}
	if req.DaysUntilDelete != nil {
		values[sweep.KeyDaysUntilDelete] = *req.DaysUntilDelete
	}

	return values
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := decodeValid[putSettingsReq](r.Body)
	if err != nil {
		return err
	}

	if err := s.repo.PutSettings(ctx, req.values()); err != nil {
		return err
	}

	// Read back so the response reflects both thresholds
	return s.getSettings(w, r)
}
