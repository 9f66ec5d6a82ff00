package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSemesterPattern(t *testing.T) {
	good := []string{"Fall 2024", "spring 2023", "WINTER  1999", "Summer 2030"}
	bad := []string{"Autumn 2024", "Fall 24", "2024 Fall", "Fall 2024!", "fall"}
	for _, s := range good {
		if !semesterRE.MatchString(s) {
			t.Fatalf("%q should match", s)
		}
	}
	for _, s := range bad {
		if semesterRE.MatchString(s) {
			t.Fatalf("%q should not match", s)
		}
	}
}

func TestBindJSON_SemesterRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	RegisterValidators() // idempotent

	type payload struct {
		Semester string `json:"semester" binding:"omitempty,semester"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var p payload
		if !bindJSON(c, &p) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	for body, want := range map[string]int{
		`{}`:                       http.StatusNoContent,
		`{"semester":"Fall 2024"}`: http.StatusNoContent,
		`{"semester":"next year"}`: http.StatusUnprocessableEntity,
		`{"semester":`:             http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("%s: status=%d want %d (%s)", body, w.Code, want, w.Body.String())
		}
		if want == http.StatusUnprocessableEntity && !strings.Contains(w.Body.String(), `"field":"semester"`) {
			t.Fatalf("expected json field name in details: %s", w.Body.String())
		}
	}
}
