package audit

import (
	"reflect"
	"testing"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: ActionRoleDemote, ActorID: "u1"})
	want := "SELECT COUNT(1) FROM audit_events WHERE true AND action = $1 AND actor_id = $2"
	if query != want {
		t.Fatalf("query = %q", query)
	}
	if !reflect.DeepEqual(args, []any{ActionRoleDemote, "u1"}) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildBaseQueryWithoutFilters(t *testing.T) {
	query, args := buildBaseQuery("SELECT id", Filter{})
	if query != "SELECT id FROM audit_events WHERE true" || len(args) != 0 {
		t.Fatalf("unexpected %q %v", query, args)
	}
}
