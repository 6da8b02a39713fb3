package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
)

func TestChecker(t *testing.T) {
	c := rbac.NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{rbac.RoleStudent, "result:submit", true},
		{rbac.RoleStudent, "rank:view", true},
		{rbac.RoleStudent, "paper:edit", false},
		{rbac.RoleStudent, "result:view-all", false},
		{rbac.RoleAdmin, "rank:export", true},
		{"", "paper:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q,%q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}

	wild := rbac.NewChecker(map[string][]string{"auditor": {"result:*"}})
	if !wild.Has("auditor", "result:view-all") || wild.Has("auditor", "rank:view") {
		t.Errorf("prefix wildcard mismatch")
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rbac.Require("paper:edit")(ok)

	for role, want := range map[string]int{rbac.RoleAdmin: http.StatusNoContent, rbac.RoleStudent: http.StatusForbidden, "": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		req = req.WithContext(rbac.WithRole(context.Background(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}

	either := rbac.RequireAny("result:view-all", "result:view-own")(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(rbac.WithRole(context.Background(), rbac.RoleStudent))
	rec := httptest.NewRecorder()
	either.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("RequireAny student: %d", rec.Code)
	}
}

func TestOwnerOr(t *testing.T) {
	student := rbac.WithRole(context.Background(), rbac.RoleStudent)
	admin := rbac.WithRole(context.Background(), rbac.RoleAdmin)

	if !rbac.OwnerOr(student, "9000000001", "9000000001", rbac.PermResultViewAll) {
		t.Errorf("owner denied")
	}
	if rbac.OwnerOr(student, "9000000001", "9000000002", rbac.PermResultViewAll) {
		t.Errorf("student read another learner")
	}
	if rbac.OwnerOr(student, "", "", rbac.PermResultViewAll) {
		t.Errorf("anonymous caller matched empty owner")
	}
	if !rbac.OwnerOr(admin, "9100000000", "9000000002", rbac.PermResultViewAll) {
		t.Errorf("admin denied")
	}
}
