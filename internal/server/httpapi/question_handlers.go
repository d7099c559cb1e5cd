package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/cpcoders/codetrack/internal/convert"
	"github.com/cpcoders/codetrack/internal/model"
	"github.com/cpcoders/codetrack/internal/service"
)

const timeLayout = time.RFC3339

// QuestionHandler exposes the question tracking endpoints.
type QuestionHandler struct {
	quests service.QuestionService
}

// requestIDs pulls the authenticated user and the {id} path param.
func requestIDs(r *http.Request) (userID, id uuid.UUID, ok bool) {
	userID, ok = UserIDFromCtx(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := convert.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	var req convert.QuestionInputDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	q, err := h.quests.Create(r.Context(), userID, convert.FromQuestionInputDTO(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToQuestionDTO(*q))
}

type upsertResp struct {
	Quest   convert.QuestionDTO `json:"quest"`
	Created bool                `json:"created"`
}

func (h *QuestionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	var req convert.QuestionInputDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	res, err := h.quests.Upsert(r.Context(), userID, convert.FromQuestionInputDTO(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, upsertResp{Quest: convert.ToQuestionDTO(res.Question), Created: res.Created})
}

type bulkResp struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

func (h *QuestionHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	var req []convert.QuestionInputDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	n, err := h.quests.BulkCreate(r.Context(), userID, convert.FromQuestionInputDTOs(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bulkResp{Inserted: n, Skipped: len(req) - n})
}

// multiValue reads a query param that accepts either repetition or a
// comma-separated list, dropping the catch-all "all".
func multiValue(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v != "" && v != "all" {
				out = append(out, v)
			}
		}
	}
	return out
}

func listFilterFromQuery(r *http.Request) model.ListFilter {
	q := r.URL.Query()
	f := model.ListFilter{
		Difficulties: multiValue(r, "difficulty"),
		Platforms:    multiValue(r, "platform"),
		Topics:       multiValue(r, "topics"),
		Bookmarked:   q.Get("bookmarked") == "true",
		Search:       strings.TrimSpace(q.Get("search")),
		SearchBy:     q.Get("searchBy"),
		SortBy:       q.Get("sortBy"),
		SortDesc:     q.Get("sortOrder") != "asc",
	}
	if st := q.Get("status"); st != "" && st != "all" {
		f.Status = st
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	return f
}

type listResp struct {
	Quests     []convert.QuestionDTO `json:"quests"`
	Pagination convert.PaginationDTO `json:"pagination"`
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	qs, pg, err := h.quests.List(r.Context(), userID, listFilterFromQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResp{Quests: convert.ToQuestionDTOs(qs), Pagination: convert.ToPaginationDTO(pg)})
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := requestIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	q, err := h.quests.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToQuestionDTO(*q))
}

func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := requestIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req convert.QuestionPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	q, err := h.quests.Update(r.Context(), userID, id, convert.FromQuestionPatchDTO(req))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToQuestionDTO(*q))
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *QuestionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := requestIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	q, err := h.quests.UpdateStatus(r.Context(), userID, id, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToQuestionDTO(*q))
}

func (h *QuestionHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := requestIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	q, err := h.quests.ToggleBookmark(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToQuestionDTO(*q))
}

func (h *QuestionHandler) MarkRevised(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := requestIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	q, err := h.quests.MarkRevised(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToQuestionDTO(*q))
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := requestIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.quests.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type topicCountDTO struct {
	Topic       string `json:"topic"`
	Count       int    `json:"count"`
	SolvedCount int    `json:"solvedCount"`
}

func (h *QuestionHandler) Topics(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	tcs, err := h.quests.Topics(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]topicCountDTO, 0, len(tcs))
	for _, tc := range tcs {
		out = append(out, topicCountDTO{Topic: tc.Topic, Count: tc.Count, SolvedCount: tc.SolvedCount})
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": out})
}

type topicGroupDTO struct {
	Topic       string                `json:"topic"`
	Quests      []convert.QuestionDTO `json:"quests"`
	Count       int                   `json:"count"`
	SolvedCount int                   `json:"solvedCount"`
}

func (h *QuestionHandler) GroupedByTopic(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())
	q := r.URL.Query()

	single := func(key string) string {
		v := q.Get(key)
		if v == "all" {
			return ""
		}
		return v
	}
	groups, err := h.quests.GroupedByTopic(r.Context(), userID,
		single("status"), single("difficulty"), single("platform"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]topicGroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, topicGroupDTO{
			Topic:       g.Topic,
			Quests:      convert.ToQuestionDTOs(g.Questions),
			Count:       g.Count,
			SolvedCount: g.SolvedCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

type statsResp struct {
	Overview       overviewDTO               `json:"overview"`
	ByDifficulty   map[string]solvedCountDTO `json:"byDifficulty"`
	ByPlatform     map[string]solvedCountDTO `json:"byPlatform"`
	ByTopic        []topicStatDTO            `json:"byTopic"`
	RecentActivity []dayCountDTO             `json:"recentActivity"`
	NeedsRevision  []convert.QuestionDTO     `json:"needsRevision"`
	WeakAreas      []topicStatDTO            `json:"weakAreas"`
	CompletionRate int                       `json:"completionRate"`
}

type overviewDTO struct {
	Total      int `json:"total"`
	Solved     int `json:"solved"`
	Unsolved   int `json:"unsolved"`
	ForFuture  int `json:"forFuture"`
	Bookmarked int `json:"bookmarked"`
}

type solvedCountDTO struct {
	Total  int `json:"total"`
	Solved int `json:"solved"`
}

func toSolvedCountDTOs(in map[string]model.SolvedCount) map[string]solvedCountDTO {
	out := make(map[string]solvedCountDTO, len(in))
	for k, v := range in {
		out[k] = solvedCountDTO(v)
	}
	return out
}

type topicStatDTO struct {
	Topic      string `json:"topic"`
	Total      int    `json:"total"`
	Solved     int    `json:"solved"`
	Percentage int    `json:"percentage"`
}

type dayCountDTO struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

func toTopicStatDTOs(in []model.TopicStat) []topicStatDTO {
	out := make([]topicStatDTO, 0, len(in))
	for _, ts := range in {
		out = append(out, topicStatDTO(ts))
	}
	return out
}

func (h *QuestionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	st, err := h.quests.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	days := make([]dayCountDTO, 0, len(st.RecentActivity))
	for _, d := range st.RecentActivity {
		days = append(days, dayCountDTO(d))
	}
	writeJSON(w, http.StatusOK, statsResp{
		Overview:       overviewDTO(st.Overview),
		ByDifficulty:   toSolvedCountDTOs(st.ByDifficulty),
		ByPlatform:     toSolvedCountDTOs(st.ByPlatform),
		ByTopic:        toTopicStatDTOs(st.ByTopic),
		RecentActivity: days,
		NeedsRevision:  convert.ToQuestionDTOs(st.NeedsRevision),
		WeakAreas:      toTopicStatDTOs(st.WeakAreas),
		CompletionRate: st.CompletionRate,
	})
}

type heatmapResp struct {
	Year           int            `json:"year"`
	Days           map[string]int `json:"days"`
	TotalDays      int            `json:"totalDays"`
	TotalRevisions int            `json:"totalRevisions"`
}

func (h *QuestionHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromCtx(r.Context())

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	hm, err := h.quests.Heatmap(r.Context(), userID, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, heatmapResp{
		Year:           hm.Year,
		Days:           hm.Days,
		TotalDays:      hm.TotalDays,
		TotalRevisions: hm.TotalRevisions,
	})
}
