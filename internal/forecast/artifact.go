package forecast

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	apperrors "poscope/internal/errors"
	"poscope/pkg/contracts"
	"poscope/pkg/contracts/domain"
)

// Artifact is a trained model bundled with the selection and dates it was
// trained on
type Artifact struct {
	FormatVersion string                 `json:"format_version"`
	Store         domain.Store           `json:"store"`
	Hours         domain.BusinessHours   `json:"hours"`
	TrainedFrom   time.Time              `json:"trained_from"`
	TrainedTo     time.Time              `json:"trained_to"`
	Model         Model                  `json:"model"`
	Metrics       domain.ForecastMetrics `json:"metrics"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Artifact exports the trained model
func (e *Engine) Artifact() (*Artifact, error) {
	if !e.CanPredict() {
		return nil, apperrors.NewStaleStateError("export model", MsgNotTrained)
	}
	return &Artifact{
		FormatVersion: contracts.ModelFormatVersion,
		Store:         e.data.Selection.Store,
		Hours:         e.data.Selection.Hours,
		TrainedFrom:   e.trainedFrom,
		TrainedTo:     e.trainedTo,
		Model:         *e.model,
		Metrics:       *e.accuracy,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Install replaces training with a previously exported model. The artifact
// must match the prepared selection.
func (e *Engine) Install(a *Artifact) error {
	if e.state == domain.ForecastIdle {
		return apperrors.NewStaleStateError("install model", MsgNotPrepared)
	}
	if err := a.check(); err != nil {
		return err
	}
	if a.Store != e.data.Selection.Store || a.Hours != e.data.Selection.Hours {
		return apperrors.NewAppValidationError("model selection mismatch", MsgModelMismatch).
			WithContext("model_store", a.Store).
			WithContext("model_hours", a.Hours)
	}

	model := a.Model
	metrics := a.Metrics
	e.reset(domain.ForecastTrained)
	e.model = &model
	e.accuracy = &metrics
	e.trainedFrom = a.TrainedFrom
	e.trainedTo = a.TrainedTo
	e.logger.Info("forecast model installed",
		slog.String("trained_from", a.TrainedFrom.Format("2006-01-02")),
		slog.String("trained_to", a.TrainedTo.Format("2006-01-02")))
	return nil
}

func (a *Artifact) check() error {
	if a.FormatVersion != contracts.ModelFormatVersion {
		return apperrors.NewDataError("model", fmt.Sprintf("未対応のモデル形式 %s", a.FormatVersion), nil)
	}
	if !slices.Equal(a.Model.Features, FeatureNames) || len(a.Model.Coefficients) != len(FeatureNames)+1 {
		return apperrors.NewDataError("model", "モデルの説明変数が一致しません", nil)
	}
	return nil
}

// WriteArtifact encodes an artifact as indented JSON
func WriteArtifact(w io.Writer, a *Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// ReadArtifact decodes and checks an artifact
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, apperrors.NewDataError("model", "JSONとして読み込めません", err)
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	return &a, nil
}
