package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

const maxBodyBytes = 1 << 20

// optionalString различает отсутствующее поле, явный null и значение.
type optionalString struct {
	Set   bool
	Null  bool
	Value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

type createItemRequest struct {
	Name        optionalString `json:"name"`
	Description optionalString `json:"description"`
}

func (r createItemRequest) command() (domain.CreateItem, error) {
	if !r.Name.Set || r.Name.Null {
		return domain.CreateItem{}, domain.NewValidationError("name", "is required")
	}
	cmd := domain.CreateItem{Name: r.Name.Value}
	if r.Description.Set && !r.Description.Null {
		cmd.Description = domain.StringPtr(r.Description.Value)
	}
	return cmd, cmd.Validate()
}

type updateItemRequest struct {
	Name        optionalString `json:"name"`
	Description optionalString `json:"description"`
}

func (r updateItemRequest) patch() (domain.ItemPatch, error) {
	var patch domain.ItemPatch
	if r.Name.Set {
		if r.Name.Null {
			return domain.ItemPatch{}, domain.NewValidationError("name", "must not be null")
		}
		patch.Name = domain.StringPtr(r.Name.Value)
	}
	if r.Description.Set {
		if r.Description.Null {
			patch.ClearDescription = true
		} else {
			patch.Description = domain.StringPtr(r.Description.Value)
		}
	}
	return patch, patch.Validate()
}

// decodeJSON читает тело запроса целиком в dst. Любая ошибка разбора — ошибка валидации.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return domain.NewValidationError("body", fmt.Sprintf("must not exceed %d bytes", maxBodyBytes))
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return domain.NewValidationError(typeErr.Field, "must be a "+typeErr.Type.String())
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("body", "is required")
		default:
			return domain.NewValidationError("body", "must be valid JSON")
		}
	}
	if dec.More() {
		return domain.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

func parseItemID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("id", "must be an integer")
	}
	return id, nil
}

func parsePage(r *http.Request) (domain.Page, error) {
	query := r.URL.Query()

	var page domain.Page
	if raw := query.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Page{}, domain.NewValidationError("skip", "must be an integer")
		}
		page.Offset = skip
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Page{}, domain.NewValidationError("limit", "must be an integer")
		}
		page.Limit = limit
	}
	return page, page.Validate()
}
