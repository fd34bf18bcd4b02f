package test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alihussnain1122/cyberoide/core/access"
	"github.com/alihussnain1122/cyberoide/core/claims"
	"github.com/alihussnain1122/cyberoide/core/purchase"
	"github.com/alihussnain1122/cyberoide/validate"
)

func TestAccessDecision(t *testing.T) {
	env, err := NewTestEnv(t, "access_decision")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}
	crs := ct.createCourseOK(t, "Linear Algebra", 2200)

	asUser := func(userID string, role string) context.Context {
		return claims.Set(context.Background(), claims.Claims{UserID: userID, Role: role})
	}

	grantedOK := func(ctx context.Context) bool {
		t.Helper()
		ok, err := access.Granted(ctx, env.DB, crs.ID)
		if err != nil {
			t.Fatalf("access decision failed: %v", err)
		}
		return ok
	}

	if grantedOK(context.Background()) {
		t.Fatal("anonymous context was granted access")
	}
	if !grantedOK(asUser(env.Admin.ID, claims.RoleAdmin)) {
		t.Fatal("admin was denied access")
	}
	if !grantedOK(asUser(env.Instructor.ID, claims.RoleInstructor)) {
		t.Fatal("course instructor was denied access")
	}
	if grantedOK(asUser(env.User.ID, claims.RoleStudent)) {
		t.Fatal("student without a purchase was granted access")
	}

	// Pending and failed rows do not open the course.
	now := time.Now().UTC()
	p := purchase.Purchase{
		ID:                validate.GenerateID(),
		UserID:            env.User.ID,
		CourseID:          crs.ID,
		Amount:            crs.Price,
		Currency:          "usd",
		Status:            purchase.Pending,
		Provider:          "stripe",
		ProviderSessionID: "cs_test_access",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := purchase.UpsertPending(context.Background(), env.DB, p); err != nil {
		t.Fatal(err)
	}
	if grantedOK(asUser(env.User.ID, claims.RoleStudent)) {
		t.Fatal("pending purchase was treated as paid")
	}

	if err := purchase.MarkFailed(context.Background(), env.DB, env.User.ID, crs.ID); err != nil {
		t.Fatal(err)
	}
	if grantedOK(asUser(env.User.ID, claims.RoleStudent)) {
		t.Fatal("failed purchase was treated as paid")
	}

	// Only the paid row does.
	p.PaidAt = &now
	if err := purchase.MarkPaid(context.Background(), env.DB, p); err != nil {
		t.Fatal(err)
	}
	if !grantedOK(asUser(env.User.ID, claims.RoleStudent)) {
		t.Fatal("paying student was denied access")
	}

	set, err := access.PaidCourseIDs(context.Background(), env.DB, env.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !set[crs.ID] || len(set) != 1 {
		t.Fatalf("paid course set mismatch: %v", set)
	}

	// A decision about a missing course surfaces the lookup error instead
	// of silently denying.
	_, err = access.Granted(asUser(env.User.ID, claims.RoleStudent), env.DB, validate.GenerateID())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing course: got %v, want sql.ErrNoRows", err)
	}
}
