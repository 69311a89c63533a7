package testserver

import (
	"bytes"
	"cmp"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mgajardo/backdesk/internal/bulk"
	"github.com/mgajardo/backdesk/internal/domain/customer"
	"github.com/mgajardo/backdesk/internal/remote"
)

const defaultPageSize = 20

type listMeta struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type listBody struct {
	Data []customer.Customer `json:"data"`
	Meta listMeta            `json:"meta"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(q.Get("size"))
	if size < 1 {
		size = defaultPageSize
	}

	matched := s.matching(q.Get("search"), q.Get("status"))
	total := len(matched)
	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}

	start := (page - 1) * size
	items := make([]customer.Customer, 0, size)
	if start < total {
		items = append(items, matched[start:min(start+size, total)]...)
	}

	writeJSON(w, http.StatusOK, listBody{
		Data: items,
		Meta: listMeta{Page: page, Size: size, Total: total, TotalPages: totalPages},
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	cust, ok := s.lookup(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, cust)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft customer.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed customer payload")
		return
	}
	if err := customer.ValidateCreate(draft); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.findByEmail(draft.Email); dup {
		writeConflict(w, "email", "email already registered")
		return
	}

	status := draft.Status
	if status == "" {
		status = customer.StatusActive
	}
	s.nextID++
	cust := customer.Customer{
		ID:        s.nextID,
		FirstName: draft.FirstName,
		LastName:  draft.LastName,
		Email:     draft.Email,
		Phone:     draft.Phone,
		TaxID:     draft.TaxID,
		Status:    status,
	}
	s.customers[cust.ID] = cust
	writeJSON(w, http.StatusCreated, cust)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch customer.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed customer payload")
		return
	}
	if err := customer.ValidateUpdate(patch); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	cust, ok := s.customers[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "customer not found")
		return
	}
	if patch.Email != nil {
		if dup, exists := s.findByEmail(*patch.Email); exists && dup.ID != id {
			writeConflict(w, "email", "email already registered")
			return
		}
		cust.Email = *patch.Email
	}
	if patch.FirstName != nil {
		cust.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		cust.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		cust.Phone = *patch.Phone
	}
	if patch.TaxID != nil {
		cust.TaxID = *patch.TaxID
	}
	if patch.Status != nil {
		cust.Status = *patch.Status
	}
	s.customers[id] = cust
	writeJSON(w, http.StatusOK, cust)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	cust, ok := s.customers[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "customer not found")
		return
	}
	cust.Status = customer.StatusInactive
	s.customers[id] = cust
	writeJSON(w, http.StatusOK, cust)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		writeMessage(w, http.StatusNotFound, "customer not found")
		return
	}
	sum, ok := s.summaries[id]
	if !ok {
		sum = zeroSummary()
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matched := s.matching(q.Get("search"), q.Get("status"))

	var buf bytes.Buffer
	if err := bulk.WriteCustomers(&buf, matched); err != nil {
		writeMessage(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed multipart payload")
		return
	}
	mode := r.FormValue("mode")
	if mode != "preview" && mode != "commit" {
		writeMessage(w, http.StatusBadRequest, "mode must be preview or commit")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "unreadable file")
		return
	}

	scan, err := bulk.ParseCustomers(data)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	imported := 0
	if mode == "commit" {
		s.mu.Lock()
		for _, row := range scan.Valid {
			s.upsert(row.Draft)
			imported++
		}
		s.mu.Unlock()
	}

	errors := make([]remote.ImportRowError, 0, len(scan.RowErrors))
	for _, re := range scan.RowErrors {
		errors = append(errors, remote.ImportRowError{Row: re.Row, Field: re.Field, Message: re.Message})
	}
	writeJSON(w, http.StatusOK, remote.ImportResult{
		Rows:     scan.RowsScanned,
		Imported: imported,
		Errors:   errors,
	})
}

// upsert applies one import row keyed by email. Caller holds the lock.
func (s *Server) upsert(draft customer.CreateRequest) {
	status := draft.Status
	if status == "" {
		status = customer.StatusActive
	}
	if existing, ok := s.findByEmail(draft.Email); ok {
		existing.FirstName = draft.FirstName
		existing.LastName = draft.LastName
		existing.Phone = draft.Phone
		existing.TaxID = draft.TaxID
		existing.Status = status
		s.customers[existing.ID] = existing
		return
	}
	s.nextID++
	s.customers[s.nextID] = customer.Customer{
		ID:        s.nextID,
		FirstName: draft.FirstName,
		LastName:  draft.LastName,
		Email:     draft.Email,
		Phone:     draft.Phone,
		TaxID:     draft.TaxID,
		Status:    status,
	}
}

// matching returns the records passing the list filters, ordered by ID.
func (s *Server) matching(search, status string) []customer.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if status != "" && status != "all" && string(c.Status) != status {
			continue
		}
		if needle != "" {
			haystack := strings.ToLower(c.FirstName + " " + c.LastName + " " + c.Email)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b customer.Customer) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// findByEmail matches case-insensitively. Caller holds the lock.
func (s *Server) findByEmail(email string) (customer.Customer, bool) {
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			return c, true
		}
	}
	return customer.Customer{}, false
}

func (s *Server) lookup(r *http.Request) (customer.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[pathID(r)]
	return c, ok
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func zeroSummary() customer.FinancialSummary {
	var sum customer.FinancialSummary
	sum.Orders.TotalAmount = "0"
	sum.Orders.BalanceDue = "0"
	sum.Payments.TotalPaid = "0"
	sum.OutstandingBalance = "0"
	return sum
}

func writeConflict(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusConflict, map[string]string{"message": msg, "field": field})
}
