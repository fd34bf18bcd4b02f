package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alihussnain1122/cyberoide/core/course"
	"github.com/alihussnain1122/cyberoide/core/file"
	"github.com/alihussnain1122/cyberoide/core/purchase"
	"github.com/alihussnain1122/cyberoide/validate"
	"github.com/google/go-cmp/cmp"
)

type courseTest struct {
	*TestEnv
}

type courseDetail struct {
	course.Course
	HasAccess bool        `json:"hasAccess"`
	Materials []file.File `json:"materials"`
}

func (ct *courseTest) createCourseOK(t *testing.T, title string, price int) course.Course {
	t.Helper()

	if err := Login(ct.TestEnv, ct.InstructorEmail, ct.InstructorPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(ct.TestEnv)

	body, err := json.Marshal(map[string]any{
		"title":       title,
		"description": "a course about " + title,
		"price":       price,
	})
	if err != nil {
		t.Fatal(err)
	}

	w, err := ct.Client().Post(ct.URL+"/courses", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create course: status code %s", w.Status)
	}

	var crs course.Course
	if err := json.NewDecoder(w.Body).Decode(&crs); err != nil {
		t.Fatalf("cannot unmarshal created course: %v", err)
	}

	return crs
}

func (ct *courseTest) showCourseOK(t *testing.T, id string) courseDetail {
	t.Helper()

	w, err := ct.Client().Get(ct.URL + "/courses/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch course: status code %s", w.Status)
	}

	var d courseDetail
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatalf("cannot unmarshal course detail: %v", err)
	}

	return d
}

func TestCourseRedaction(t *testing.T) {
	env, err := NewTestEnv(t, "course_redaction")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}
	crs := ct.createCourseOK(t, "Operating Systems", 4900)

	// Anonymous callers see the summary only.
	d := ct.showCourseOK(t, crs.ID)
	if d.HasAccess {
		t.Fatal("anonymous caller must not have access")
	}
	if len(d.Materials) != 0 {
		t.Fatalf("anonymous caller got %d materials", len(d.Materials))
	}
	if d.Title != crs.Title || d.Price != crs.Price {
		t.Fatal("redacted summary should still carry title and price")
	}

	// A student without a purchase is redacted too.
	if err := Login(env, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	d = ct.showCourseOK(t, crs.ID)
	if d.HasAccess {
		t.Fatal("unpaid student must not have access")
	}
	Logout(env)

	// The instructor always sees the full course.
	if err := Login(env, env.InstructorEmail, env.InstructorPass); err != nil {
		t.Fatal(err)
	}
	d = ct.showCourseOK(t, crs.ID)
	if !d.HasAccess {
		t.Fatal("instructor must have access to the own course")
	}
	Logout(env)
}

func TestCourseUpdate(t *testing.T) {
	env, err := NewTestEnv(t, "course_update")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}
	crs := ct.createCourseOK(t, "Networking", 1500)

	if err := Login(env, env.InstructorEmail, env.InstructorPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env)

	title := "Networking, 2nd edition"
	price := 1900
	body, err := json.Marshal(map[string]any{"title": title, "price": price})
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, env.URL+"/courses/"+crs.ID, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't update course: status code %s", w.Status)
	}

	var got course.Course
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}

	want := crs
	want.Title = title
	want.Price = price

	// Timestamps round-trip through the database at a coarser precision.
	want.CreatedAt = got.CreatedAt
	want.UpdatedAt = got.UpdatedAt

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updated course mismatch (-want +got):\n%s", diff)
	}
	Logout(env)

	// A refused update leaves the row untouched.
	if err := Login(env, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	body, err = json.Marshal(map[string]any{"price": 1})
	if err != nil {
		t.Fatal(err)
	}
	r, err = http.NewRequest(http.MethodPut, env.URL+"/courses/"+crs.ID, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err = env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusForbidden {
		t.Fatalf("student updated a course: status code %s", w.Status)
	}

	if d := ct.showCourseOK(t, crs.ID); d.Title != title || d.Price != price {
		t.Fatalf("refused update changed the course: %+v", d.Course)
	}
}

func TestCourseSales(t *testing.T) {
	env, err := NewTestEnv(t, "course_sales")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}
	crs := ct.createCourseOK(t, "Graph Theory", 2500)

	now := time.Now().UTC()
	p := purchase.Purchase{
		ID:                validate.GenerateID(),
		UserID:            env.User.ID,
		CourseID:          crs.ID,
		Amount:            crs.Price,
		Currency:          "usd",
		Status:            purchase.Paid,
		Provider:          "stripe",
		ProviderSessionID: "cs_test_sales",
		PaidAt:            &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := purchase.MarkPaid(context.Background(), env.DB, p); err != nil {
		t.Fatal(err)
	}

	// Students cannot read the report.
	if err := Login(env, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	w, err := env.Client().Get(env.URL + "/courses/" + crs.ID + "/sales")
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusForbidden {
		t.Fatalf("student read the sales report: status code %s", w.Status)
	}
	Logout(env)

	if err := Login(env, env.InstructorEmail, env.InstructorPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env)

	w, err = env.Client().Get(env.URL + "/courses/" + crs.ID + "/sales")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch sales report: status code %s", w.Status)
	}

	var sales course.Sales
	if err := json.NewDecoder(w.Body).Decode(&sales); err != nil {
		t.Fatal(err)
	}

	if sales.TotalSales != 1 || sales.TotalRevenue != 2500 {
		t.Fatalf("sales report is %d/%d, want 1/2500", sales.TotalSales, sales.TotalRevenue)
	}
	if len(sales.Recent) != 1 || sales.Recent[0].StudentEmail != env.UserEmail {
		t.Fatalf("recent sales mismatch: %+v", sales.Recent)
	}
}
