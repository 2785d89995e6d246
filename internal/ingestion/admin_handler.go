package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/extract"
	"github.com/rpattn/masterdata/internal/repository"
)

// AdminHandler serves mapping configuration and schema discovery.
type AdminHandler struct {
	mappings      repository.MappingRepository
	schema        repository.SchemaIntrospector
	logs          repository.IngestionLogRepository
	systemColumns []string
}

// NewAdminHandler wires the administrative endpoints.
func NewAdminHandler(
	mappings repository.MappingRepository,
	schema repository.SchemaIntrospector,
	logs repository.IngestionLogRepository,
	systemColumns []string,
) *AdminHandler {
	return &AdminHandler{
		mappings:      mappings,
		schema:        schema,
		logs:          logs,
		systemColumns: systemColumns,
	}
}

// Register mounts the endpoints on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /mappings", h.getMappings)
	mux.HandleFunc("POST /mappings", h.putMapping)
	mux.HandleFunc("GET /tables", h.listTables)
	mux.HandleFunc("GET /tables/{name}/columns", h.listColumns)
	mux.HandleFunc("GET /ingestion-logs", h.listLogs)
}

type mappingEntryPayload struct {
	HeaderCell string `json:"header_cell"`
	ColumnName string `json:"column_name"`
	Kind       string `json:"kind"`
}

type mappingPayload struct {
	TableName string                `json:"table_name"`
	Detail    []mappingEntryPayload `json:"detail"`
}

func (h *AdminHandler) getMappings(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimSpace(r.URL.Query().Get("table_name"))
	if table == "" {
		tables, err := h.mappings.ListMappedTables(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
		return
	}

	mapping, err := h.mappings.GetMapping(r.Context(), table)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrMappingNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (h *AdminHandler) putMapping(w http.ResponseWriter, r *http.Request) {
	var payload mappingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	entries := make([]domain.MappingEntry, len(payload.Detail))
	for i, detail := range payload.Detail {
		kind, err := domain.ParseColumnKind(detail.Kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		header, err := extract.CanonicalHeader(detail.HeaderCell)
		if err != nil {
			http.Error(w, fmt.Sprintf("%v: entry %d: %v", domain.ErrInvalidMapping, i, err), http.StatusBadRequest)
			return
		}
		entries[i] = domain.MappingEntry{HeaderRef: header, Column: detail.ColumnName, Kind: kind}
	}
	mapping := domain.NewColumnMapping(payload.TableName, entries)
	if err := mapping.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	columns, err := h.schema.ListColumns(r.Context(), mapping.Table, h.systemColumns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(columns) == 0 {
		http.Error(w, fmt.Sprintf("%v: %s", domain.ErrUnknownTable, mapping.Table), http.StatusBadRequest)
		return
	}
	registry := domain.NewTableSchema(mapping.Table, columns, "", false)
	for _, column := range mapping.Columns() {
		if !registry.HasColumn(column) {
			http.Error(w, fmt.Sprintf("%v: %s.%s", domain.ErrUnknownColumn, mapping.Table, column), http.StatusBadRequest)
			return
		}
	}

	stored, err := h.mappings.PutMapping(r.Context(), mapping)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidMapping) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *AdminHandler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.schema.ListTables(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (h *AdminHandler) listColumns(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("name")
	columns, err := h.schema.ListColumns(r.Context(), table, h.systemColumns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(columns) == 0 {
		http.Error(w, fmt.Sprintf("%v: %s", domain.ErrUnknownTable, table), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "columns": columns})
}

func (h *AdminHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.IngestionLogFilter{
		TableName: strings.TrimSpace(query.Get("table_name")),
		FileName:  strings.TrimSpace(query.Get("file_name")),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("%s must be an integer", name), http.StatusBadRequest)
			return
		}
		*dst = value
	}

	entries, err := h.logs.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
