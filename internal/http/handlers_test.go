package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
)

func TestCreateAppointmentExpandsWeeklyRecurrence(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{
		"title":          "Werkplaats overleg",
		"type":           "meeting",
		"start":          "2026-03-16T10:00:00Z",
		"end":            "2026-03-16T11:00:00Z",
		"recurrenceRule": "FREQ=WEEKLY;UNTIL=20260327T235959Z;BYDAY=MO,WE",
	}, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusCreated)

	var rows []struct {
		ID       string `json:"id"`
		SeriesID string `json:"seriesId"`
		Start    string `json:"start"`
	}
	decodeBody(t, resp, &rows)

	if len(rows) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(rows))
	}
	for _, row := range rows {
		if row.SeriesID != rows[0].SeriesID {
			t.Fatalf("occurrences do not share a series id: %+v", rows)
		}
	}
	if rows[0].ID != rows[0].SeriesID {
		t.Fatalf("first occurrence id %q should equal series id %q", rows[0].ID, rows[0].SeriesID)
	}
}

func TestListAppointmentsByWeekView(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{
		"title":          "Inname bespreken",
		"type":           "internal",
		"start":          "2026-03-16T10:00:00Z",
		"end":            "2026-03-16T11:00:00Z",
		"recurrenceRule": "FREQ=WEEKLY;UNTIL=20260327T235959Z;BYDAY=MO,WE",
	}, cookie)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusCreated)

	resp = env.request(t, http.MethodGet, "/api/appointments?view=week&date=2026-03-16", nil, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	var rows []struct {
		Start string `json:"start"`
	}
	decodeBody(t, resp, &rows)

	// The week of March 16 holds the Monday and Wednesday occurrences only.
	if len(rows) != 2 {
		t.Fatalf("expected 2 occurrences in the week view, got %d", len(rows))
	}
	if rows[0].Start != "2026-03-16T10:00:00Z" || rows[1].Start != "2026-03-18T10:00:00Z" {
		t.Fatalf("unexpected starts: %+v", rows)
	}
}

func TestUpdateAppointmentRejectsUnknownScope(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPatch, "/api/appointments/some-id?scope=everything", map[string]any{
		"title": "Nieuwe titel",
	}, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusBadRequest)

	var body struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &body)
	if body.Message != "Ongeldige scope, gebruik single of all." {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestAppointmentValidationErrorsAreLocalized(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{
		"title": "",
		"type":  "meeting",
		"start": "2026-03-16T11:00:00Z",
		"end":   "2026-03-16T10:00:00Z",
	}, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusUnprocessableEntity)

	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &body)
	if body.Message != "De invoer bevat fouten." {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if body.Errors["title"] != "Titel is verplicht." {
		t.Fatalf("unexpected title error %q", body.Errors["title"])
	}
	if body.Errors["end"] != "De eindtijd moet na de begintijd liggen." {
		t.Fatalf("unexpected end error %q", body.Errors["end"])
	}
}

func TestAgendaLayoutReturnsDayColumns(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{
		"title": "Sensor reinigen",
		"type":  "task",
		"start": "2026-03-16T09:00:00Z",
		"end":   "2026-03-16T10:30:00Z",
	}, cookie)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusCreated)

	resp = env.request(t, http.MethodGet, "/api/agenda/layout?view=week&date=2026-03-16", nil, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	var layout struct {
		View        string  `json:"view"`
		TotalHeight float64 `json:"totalHeight"`
		Days        []struct {
			Day    string `json:"day"`
			Blocks []struct {
				AppointmentID string  `json:"appointmentId"`
				Top           float64 `json:"top"`
				Height        float64 `json:"height"`
			} `json:"blocks"`
		} `json:"days"`
	}
	decodeBody(t, resp, &layout)

	if layout.View != "week" || len(layout.Days) != 7 {
		t.Fatalf("unexpected layout shape: view=%q days=%d", layout.View, len(layout.Days))
	}
	if layout.TotalHeight <= 0 {
		t.Fatalf("total height must be positive, got %f", layout.TotalHeight)
	}
	monday := layout.Days[0]
	if monday.Day != "2026-03-16" || len(monday.Blocks) != 1 {
		t.Fatalf("expected one block on Monday, got %+v", monday)
	}
	if monday.Blocks[0].Height <= 0 {
		t.Fatalf("block height must be positive: %+v", monday.Blocks[0])
	}
}

func TestCalendarExportRendersICS(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/appointments", map[string]any{
		"title": "Lens kalibratie",
		"type":  "task",
		"start": "2026-03-16T09:00:00Z",
		"end":   "2026-03-16T10:00:00Z",
	}, cookie)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusCreated)

	resp = env.request(t, http.MethodGet, "/api/appointments/export.ics?view=week&date=2026-03-16", nil, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "SUMMARY:Lens kalibratie") {
		t.Fatalf("calendar output missing expected lines:\n%s", body)
	}
}

func TestRepairLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{
		"title":         "Canon EF 24-70 zoomring klemt",
		"priority":      "high",
		"issueCategory": "lens",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)

	var repair struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &repair)
	resp.Body.Close()
	if repair.Status != "new" {
		t.Fatalf("new repairs must start in status new, got %q", repair.Status)
	}

	resp = env.request(t, http.MethodPatch, "/api/repairs/"+repair.ID, map[string]any{
		"status": "diagnosing",
	}, cookie)
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.request(t, http.MethodPatch, "/api/repairs/"+repair.ID, map[string]any{
		"status": "completed",
	}, cookie)
	requireStatus(t, resp, http.StatusOK)

	var completed struct {
		Status      string  `json:"status"`
		CompletedAt *string `json:"completedAt"`
	}
	decodeBody(t, resp, &completed)
	resp.Body.Close()
	if completed.Status != "completed" || completed.CompletedAt == nil {
		t.Fatalf("expected a stamped completion, got %+v", completed)
	}

	// completed -> diagnosing would be a backwards move.
	resp = env.request(t, http.MethodPatch, "/api/repairs/"+repair.ID, map[string]any{
		"status": "diagnosing",
	}, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusUnprocessableEntity)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &body)
	if body.Errors["status"] != "Deze statuswijziging is niet toegestaan." {
		t.Fatalf("unexpected status error %q", body.Errors["status"])
	}
}

func TestRepairDeleteRequiresAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	admin := env.loginAdmin(t)
	tech := env.loginTechnician(t)

	resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{
		"title": "Nikon D750 sluiter vervangen",
	}, admin)
	requireStatus(t, resp, http.StatusCreated)
	var repair struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &repair)
	resp.Body.Close()

	resp = env.request(t, http.MethodDelete, "/api/repairs/"+repair.ID, nil, tech)
	requireStatus(t, resp, http.StatusForbidden)
	var forbidden struct {
		ErrorCode string `json:"error_code"`
	}
	decodeBody(t, resp, &forbidden)
	resp.Body.Close()
	if forbidden.ErrorCode != "AUTH_FORBIDDEN" {
		t.Fatalf("unexpected error code %q", forbidden.ErrorCode)
	}

	resp = env.request(t, http.MethodDelete, "/api/repairs/"+repair.ID, nil, admin)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusNoContent)
}

func TestRepairPhotoUploadAttachesURLs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{
		"title": "Sony A7 III bajonet vervangen",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var repair struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &repair)
	resp.Body.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photos", "voorkant.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-jpeg-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/repairs/"+repair.ID+"/files", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(cookie)

	uploadResp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer uploadResp.Body.Close()
	requireStatus(t, uploadResp, http.StatusOK)

	var updated struct {
		PhotoURLs []string `json:"photoUrls"`
	}
	decodeBody(t, uploadResp, &updated)
	if len(updated.PhotoURLs) != 1 || !strings.HasPrefix(updated.PhotoURLs[0], "/api/files/") {
		t.Fatalf("unexpected photo urls %v", updated.PhotoURLs)
	}

	// The uploaded bytes must be retrievable through the files endpoint.
	fileID := strings.TrimPrefix(updated.PhotoURLs[0], "/api/files/")
	downloadResp := env.request(t, http.MethodGet, "/api/files/"+fileID, nil, cookie)
	defer downloadResp.Body.Close()
	requireStatus(t, downloadResp, http.StatusOK)
	raw, err := io.ReadAll(downloadResp.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(raw) != "fake-jpeg-bytes" {
		t.Fatalf("downloaded bytes = %q", raw)
	}
}

func TestRepairUploadCapsCombinedFileCount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{
		"title": "Canon 5D spiegel klemt",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var repair struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &repair)
	resp.Body.Close()

	// Six photos plus five attachments exceed the cap of ten per request.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for i := 0; i < 6; i++ {
		part, err := writer.CreateFormFile("photos", fmt.Sprintf("foto-%d.jpg", i))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("jpeg")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		part, err := writer.CreateFormFile("attachments", fmt.Sprintf("bon-%d.pdf", i))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("pdf")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/repairs/"+repair.ID+"/files", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(cookie)

	uploadResp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer uploadResp.Body.Close()
	requireStatus(t, uploadResp, http.StatusUnprocessableEntity)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, uploadResp, &body)
	if body.Errors["files"] != "Te veel bestanden in één upload." {
		t.Fatalf("unexpected files error %q", body.Errors["files"])
	}

	stored, err := env.store.ListFiles(context.Background(), "repair", repair.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("rejected upload left %d files behind", len(stored))
	}
}

func TestRepairUploadStoresNothingWhenOneFileFails(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{
		"title": "Nikon F3 lichtmeter defect",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var repair struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &repair)
	resp.Body.Close()

	// A valid photo plus an attachment over the size limit: the whole
	// request must fail without keeping the photo.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photos", "voorkant.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-jpeg-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	part, err = writer.CreateFormFile("attachments", "handleiding.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("x"), 1<<20+1)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/repairs/"+repair.ID+"/files", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(cookie)

	uploadResp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer uploadResp.Body.Close()
	requireStatus(t, uploadResp, http.StatusUnprocessableEntity)

	stored, err := env.store.ListFiles(context.Background(), "repair", repair.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("failed upload left %d files behind", len(stored))
	}

	fetched := env.request(t, http.MethodGet, "/api/repairs/"+repair.ID, nil, cookie)
	defer fetched.Body.Close()
	requireStatus(t, fetched, http.StatusOK)
	var after struct {
		PhotoURLs []string `json:"photoUrls"`
	}
	decodeBody(t, fetched, &after)
	if len(after.PhotoURLs) != 0 {
		t.Fatalf("failed upload attached photo urls %v", after.PhotoURLs)
	}
}

func TestPurchaseOrderStatusOnlyMovesForward(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/purchase-orders", map[string]any{
		"supplierRef": "VEILING-2026-118",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var po struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &po)
	resp.Body.Close()
	if po.Status != "aangekocht" {
		t.Fatalf("orders must start as aangekocht, got %q", po.Status)
	}

	resp = env.request(t, http.MethodPatch, "/api/purchase-orders/"+po.ID, map[string]any{
		"status": "ontvangen",
	}, cookie)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	resp = env.request(t, http.MethodPatch, "/api/purchase-orders/"+po.ID, map[string]any{
		"status": "aangekocht",
	}, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusUnprocessableEntity)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &body)
	if body.Errors["status"] != "De status kan alleen vooruit." {
		t.Fatalf("unexpected status error %q", body.Errors["status"])
	}
}

func TestPurchaseOrderItems(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/purchase-orders", map[string]any{
		"supplierRef": "MARKT-44",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var po struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &po)
	resp.Body.Close()

	resp = env.request(t, http.MethodPost, "/api/purchase-orders/"+po.ID+"/items", map[string]any{
		"description":    "Canon FD 50mm f/1.4",
		"quantity":       2,
		"unitPriceCents": 7500,
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var item struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &item)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/purchase-orders/"+po.ID+"/items", nil, cookie)
	requireStatus(t, resp, http.StatusOK)
	var items []struct {
		Description string `json:"description"`
		Quantity    int    `json:"quantity"`
	}
	decodeBody(t, resp, &items)
	resp.Body.Close()
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", items)
	}

	resp = env.request(t, http.MethodDelete, "/api/purchase-orders/"+po.ID+"/items/"+item.ID, nil, cookie)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusNoContent)
}

func TestCaseLinksRejectDuplicates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/cases", map[string]any{
		"title": "Klacht over vertraagde reparatie",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var c struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &c)
	resp.Body.Close()

	link := map[string]any{"entityKind": "repair", "entityId": "rep-9"}

	resp = env.request(t, http.MethodPost, "/api/cases/"+c.ID+"/links", link, cookie)
	resp.Body.Close()
	requireStatus(t, resp, http.StatusCreated)

	resp = env.request(t, http.MethodPost, "/api/cases/"+c.ID+"/links", link, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusConflict)
}

func TestTodoCreateAndComplete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginTechnician(t)

	resp := env.request(t, http.MethodPost, "/api/todos", map[string]any{
		"title":    "Pakbon printen",
		"priority": "low",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	var todo struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &todo)
	resp.Body.Close()
	if todo.Status != "open" {
		t.Fatalf("todos must start open, got %q", todo.Status)
	}

	resp = env.request(t, http.MethodPatch, "/api/todos/"+todo.ID, map[string]any{
		"status": "done",
	}, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	var updated struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &updated)
	if updated.Status != "done" {
		t.Fatalf("unexpected status %q", updated.Status)
	}
}

func TestActivityFeedRecordsMutations(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{
		"title": "Leica M6 lichtmeter",
	}, cookie)
	requireStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/activities?limit=5", nil, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	var entries []struct {
		EntityKind string `json:"entityKind"`
		Action     string `json:"action"`
	}
	decodeBody(t, resp, &entries)
	if len(entries) == 0 {
		t.Fatal("expected at least one activity entry")
	}
	if entries[0].EntityKind != "repair" || entries[0].Action != "created" {
		t.Fatalf("unexpected newest entry %+v", entries[0])
	}
}

func TestRepairAnalyticsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	for _, title := range []string{"Body CLA", "Lens schimmel", "Zoeker prisma"} {
		resp := env.request(t, http.MethodPost, "/api/repairs", map[string]any{"title": title}, cookie)
		requireStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	resp := env.request(t, http.MethodGet, "/api/analytics/repairs", nil, cookie)
	defer resp.Body.Close()
	requireStatus(t, resp, http.StatusOK)

	var report struct {
		Total          int            `json:"total"`
		CountsByStatus map[string]int `json:"countsByStatus"`
	}
	decodeBody(t, resp, &report)
	if report.Total != 3 || report.CountsByStatus["new"] != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}
