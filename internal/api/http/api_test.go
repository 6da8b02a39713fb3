package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/mindengage-mocktest/internal/api/http"
	"github.com/mind-engage/mindengage-mocktest/internal/auth"
	authmw "github.com/mind-engage/mindengage-mocktest/internal/auth/middleware"
	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
)

const (
	adminPhone = "9100000000"
	alice      = "9000000001"
	bob        = "9000000002"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	tokens map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	svc := submission.New(exam.NewInMemoryStore())
	a := authmw.NewAuthService("test-secret")
	otp := auth.NewOTPService(auth.NewMemoryOTPStore(), time.Minute, []string{adminPhone}).WithBcryptCost(bcrypt.MinCost)
	srv := httptest.NewServer(api.NewRouter(svc, otp, a))
	t.Cleanup(srv.Close)

	h := &harness{t: t, srv: srv, tokens: map[string]string{}}
	for phone, role := range map[string]string{adminPhone: rbac.RoleAdmin, alice: rbac.RoleStudent, bob: rbac.RoleStudent} {
		tok, err := a.IssueJWT(phone, role)
		if err != nil {
			t.Fatalf("IssueJWT: %v", err)
		}
		h.tokens[phone] = tok
	}
	return h
}

func (h *harness) do(method, path, as string, body string) (*http.Response, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	if err != nil {
		h.t.Fatalf("NewRequest: %v", err)
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+h.tokens[as])
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func (h *harness) expect(method, path, as, body string, status int, out any) {
	h.t.Helper()
	resp, b := h.do(method, path, as, body)
	if resp.StatusCode != status {
		h.t.Fatalf("%s %s as %s: status %d, want %d: %s", method, path, as, resp.StatusCode, status, b)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			h.t.Fatalf("%s %s: decode %s: %v", method, path, b, err)
		}
	}
}

const paperJSON = `{
  "title": "JEE Main Mock 1",
  "category": "JEE",
  "duration_min": 180,
  "questions": [
    {"text": "a", "options": ["0","1","2"], "correct_index": 1, "subject": "Physics"},
    {"text": "b", "options": ["0","1","2"], "correct_index": 0, "subject": "Physics"},
    {"text": "c", "options": ["0","1","2"], "correct_index": 2, "subject": "Chemistry"}
  ]
}`

func TestPaperLifecycle(t *testing.T) {
	h := newHarness(t)

	h.expect("PUT", "/papers/jee-1", alice, paperJSON, http.StatusForbidden, nil)
	h.expect("PUT", "/papers/jee-1", adminPhone, `{"title":"x","category":"SAT","duration_min":1}`, http.StatusBadRequest, nil)

	var saved exam.Paper
	h.expect("PUT", "/papers/jee-1", adminPhone, paperJSON, http.StatusOK, &saved)
	if saved.ID != "jee-1" || saved.Version != 1 || saved.TotalQuestions != 3 {
		t.Fatalf("saved = %+v", saved)
	}

	var student exam.Paper
	h.expect("GET", "/papers/jee-1", alice, "", http.StatusOK, &student)
	for _, q := range student.Questions {
		if q.CorrectIndex != nil {
			t.Fatalf("student sees answer key: %+v", q)
		}
	}
	var full exam.Paper
	h.expect("GET", "/papers/jee-1", adminPhone, "", http.StatusOK, &full)
	if full.Questions[0].CorrectIndex == nil {
		t.Fatalf("admin view lost answer key")
	}

	var list []exam.PaperSummary
	h.expect("GET", "/papers?category=jee", alice, "", http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != "jee-1" {
		t.Fatalf("list = %+v", list)
	}

	var errBody map[string]string
	h.expect("GET", "/papers/nope", alice, "", http.StatusNotFound, &errBody)
	if errBody["error"] == "" {
		t.Fatalf("missing error body")
	}
	h.expect("GET", "/papers", "", "", http.StatusUnauthorized, nil)
}

func TestSubmitAndRank(t *testing.T) {
	h := newHarness(t)
	h.expect("PUT", "/papers/jee-1", adminPhone, paperJSON, http.StatusOK, nil)

	// no results yet
	h.expect("GET", "/papers/jee-1/ranking", alice, "", http.StatusNotFound, nil)

	var res exam.Result
	h.expect("POST", "/papers/jee-1/submit", alice, `{"0":1,"1":1}`, http.StatusCreated, &res)
	if res.UserPhone != alice || res.CorrectCount != 1 || res.WrongCount != 1 || res.Percent != 33 {
		t.Fatalf("result = %+v", res)
	}
	if res.SubjectBreakdown["Physics"] != (exam.SubjectStats{Total: 2, Attempted: 2, Correct: 1}) {
		t.Fatalf("breakdown = %+v", res.SubjectBreakdown)
	}

	var bobRes exam.Result
	h.expect("POST", "/papers/jee-1/submit", bob, `{"answers":{"0":1,"1":0,"2":"x"}}`, http.StatusCreated, &bobRes)
	if bobRes.CorrectCount != 2 || bobRes.WrongCount != 1 {
		t.Fatalf("bob result = %+v", bobRes)
	}

	h.expect("POST", "/papers/jee-1/submit", alice, `[1,2]`, http.StatusBadRequest, nil)
	h.expect("POST", "/papers/nope/submit", alice, `{}`, http.StatusNotFound, nil)

	// results visibility
	var mine []exam.Result
	h.expect("GET", "/papers/jee-1/results", alice, "", http.StatusOK, &mine)
	if len(mine) != 1 || mine[0].ID != res.ID {
		t.Fatalf("alice results = %+v", mine)
	}
	h.expect("GET", "/papers/jee-1/results?user_phone="+bob, alice, "", http.StatusForbidden, nil)
	var bobs []exam.Result
	h.expect("GET", "/papers/jee-1/results?user_phone="+bob, adminPhone, "", http.StatusOK, &bobs)
	if len(bobs) != 1 {
		t.Fatalf("admin view of bob = %+v", bobs)
	}
	h.expect("GET", "/results/"+bobRes.ID, alice, "", http.StatusNotFound, nil)
	h.expect("GET", "/results/"+bobRes.ID, bob, "", http.StatusOK, nil)
	h.expect("GET", "/results/"+bobRes.ID, adminPhone, "", http.StatusOK, nil)

	// ranking: bob 2 correct 1 wrong = 7, alice 1/1 = 3
	var entries []exam.RankEntry
	h.expect("GET", "/papers/jee-1/ranking", alice, "", http.StatusOK, &entries)
	if len(entries) != 2 || entries[0].UserPhone != bob || entries[0].Score != 7 || entries[1].Rank != 2 {
		t.Fatalf("ranking = %+v", entries)
	}
	h.expect("GET", "/papers/jee-1/ranking?variant=aggregate", alice, "", http.StatusOK, &entries)
	if entries[0].UserPhone != bob || entries[0].Score != 2 {
		t.Fatalf("aggregate = %+v", entries)
	}
	h.expect("GET", "/papers/jee-1/ranking?variant=median", alice, "", http.StatusBadRequest, nil)

	var me exam.RankEntry
	h.expect("GET", "/papers/jee-1/ranking/me", alice, "", http.StatusOK, &me)
	if me.UserPhone != alice || me.Rank != 2 || me.TotalParticipants != 2 {
		t.Fatalf("me = %+v", me)
	}
	h.expect("GET", "/papers/jee-1/ranking/"+bob, alice, "", http.StatusForbidden, nil)
	h.expect("GET", "/papers/jee-1/ranking/"+bob, adminPhone, "", http.StatusOK, &me)
	if me.UserPhone != bob || me.Rank != 1 {
		t.Fatalf("bob rank = %+v", me)
	}
	h.expect("GET", "/papers/jee-1/ranking/9999999999", adminPhone, "", http.StatusNotFound, nil)

	h.expect("GET", "/papers/jee-1/ranking.xlsx", alice, "", http.StatusForbidden, nil)
	resp, body := h.do("GET", "/papers/jee-1/ranking.xlsx", adminPhone, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "spreadsheetml") || len(body) == 0 {
		t.Fatalf("xlsx: %d %s (%d bytes)", resp.StatusCode, resp.Header.Get("Content-Type"), len(body))
	}

	// a later attempt is not in the stored entries until the next recompute
	h.expect("POST", "/papers/jee-1/submit", alice, `{"0":1,"1":0,"2":2}`, http.StatusCreated, nil)
	h.expect("GET", "/papers/jee-1/ranking?variant=aggregate&cached=1", alice, "", http.StatusOK, &entries)
	if len(entries) != 2 || entries[0].UserPhone != bob || entries[0].Score != 2 {
		t.Fatalf("stored aggregate = %+v", entries)
	}
	h.expect("GET", "/papers/jee-1/ranking?variant=aggregate", alice, "", http.StatusOK, &entries)
	if entries[0].UserPhone != alice || entries[0].Score != 4 {
		t.Fatalf("recomputed aggregate = %+v", entries)
	}
}

func TestOTPLogin(t *testing.T) {
	h := newHarness(t)

	var issued map[string]string
	h.expect("POST", "/auth/otp", "", `{"phone":"+91 91000 00000"}`, http.StatusOK, &issued)
	if issued["phone"] != "919100000000" || len(issued["code"]) != 6 {
		t.Fatalf("issued = %+v", issued)
	}
	h.expect("POST", "/auth/otp", "", `{"phone":"12"}`, http.StatusBadRequest, nil)
	h.expect("POST", "/auth/verify", "", `{"phone":"919100000000","code":"12"}`, http.StatusBadRequest, nil)

	var login map[string]string
	h.expect("POST", "/auth/verify", "", `{"phone":"919100000000","code":"`+issued["code"]+`"}`, http.StatusOK, &login)
	if login["role"] != rbac.RoleStudent || login["access_token"] == "" {
		t.Fatalf("login = %+v", login)
	}
	h.expect("POST", "/auth/verify", "", `{"phone":"919100000000","code":"`+issued["code"]+`"}`, http.StatusUnauthorized, nil)

	req, _ := http.NewRequest("GET", h.srv.URL+"/papers", nil)
	req.Header.Set("Authorization", "Bearer "+login["access_token"])
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /papers: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token from OTP login rejected: %d", resp.StatusCode)
	}
}
