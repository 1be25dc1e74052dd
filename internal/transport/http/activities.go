package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/app"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
)

// ActivityService is the activity-management surface the transport needs.
type ActivityService interface {
	Create(ctx context.Context, in app.CreateActivityInput) (domain.Activity, error)
	Get(ctx context.Context, id int64) (domain.Activity, error)
	List(ctx context.Context) ([]domain.Activity, error)
	Delete(ctx context.Context, id int64) error
}

// HandleActivities serves POST /admin/activities and GET /admin/activities.
func HandleActivities(svc ActivityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createActivity(w, r, svc)
		case http.MethodGet:
			activities, err := svc.List(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			out := make([]activityResponse, 0, len(activities))
			for _, a := range activities {
				out = append(out, toActivityResponse(a))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(out)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func createActivity(w http.ResponseWriter, r *http.Request, svc ActivityService) {
	var req createActivityRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	activity, err := svc.Create(r.Context(), app.CreateActivityInput{
		ProductID:      req.ProductID,
		Name:           req.Name,
		SalePriceCents: req.SalePriceCents,
		SaleStock:      req.SaleStock,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toActivityResponse(activity))
}

// HandleActivityByID serves GET and DELETE on /admin/activities/{id}.
func HandleActivityByID(svc ActivityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseActivityPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			activity, err := svc.Get(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toActivityResponse(activity))
		case http.MethodDelete:
			if err := svc.Delete(r.Context(), id); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseActivityPath(path string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "admin" || parts[1] != "activities" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type createActivityRequest struct {
	ProductID      int64     `json:"product_id"`
	Name           string    `json:"name"`
	SalePriceCents int64     `json:"sale_price_cents"`
	SaleStock      int       `json:"sale_stock"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type activityResponse struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	Name           string    `json:"name"`
	SalePriceCents int64     `json:"sale_price_cents"`
	SaleStock      int       `json:"sale_stock"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
}

func toActivityResponse(a domain.Activity) activityResponse {
	return activityResponse{
		ID:             a.ID,
		ProductID:      a.ProductID,
		Name:           a.Name,
		SalePriceCents: a.SalePriceCents,
		SaleStock:      a.SaleStock,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Status:         string(a.Status),
	}
}
