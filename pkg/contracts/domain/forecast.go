package domain

import "time"

// ForecastState is the lifecycle state of a session's forecast
type ForecastState string

const (
	ForecastIdle      ForecastState = "idle"
	ForecastPrepared  ForecastState = "prepared"
	ForecastTrained   ForecastState = "trained"
	ForecastPredicted ForecastState = "predicted"
)

// ForecastSelection is the store and hours a forecast is built for
type ForecastSelection struct {
	Store Store         `json:"store" validate:"required,oneof=west east"`
	Hours BusinessHours `json:"hours" validate:"required,oneof=midday evening both"`
}

// ForecastMetrics reports accuracy on both chronological partitions
type ForecastMetrics struct {
	FitRows        int     `json:"fit_rows"`
	ValidationRows int     `json:"validation_rows"`
	FitRMSE        float64 `json:"fit_rmse"`
	FitMAPE        float64 `json:"fit_mape"`
	ValidationRMSE float64 `json:"validation_rmse"`
	ValidationMAPE float64 `json:"validation_mape"`
}

// Prediction is the forecast customer count for one future date
type Prediction struct {
	Date       time.Time `json:"date"`
	Term       TermCode  `json:"term"`
	Class      ClassCode `json:"class"`
	WeekOfTerm Number    `json:"week_of_term"`
	Attendance Number    `json:"attendance"`
	Customers  float64   `json:"customers"`
}

// ForecastStatus summarizes the forecast for clients deciding which actions to enable
type ForecastStatus struct {
	State       ForecastState      `json:"state"`
	Selection   *ForecastSelection `json:"selection,omitempty"`
	CanTrain    bool               `json:"can_train"`
	CanPredict  bool               `json:"can_predict"`
	Trainable   int                `json:"trainable_rows"`
	Predictable int                `json:"predictable_rows"`
	Metrics     *ForecastMetrics   `json:"metrics,omitempty"`
	Predictions []Prediction       `json:"predictions,omitempty"`
}
