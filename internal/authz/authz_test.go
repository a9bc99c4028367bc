package authz

import (
	"testing"

	"github.com/Welazure/Item-trade-backend/internal/models"
)

func TestFor(t *testing.T) {
	cases := []struct {
		name     string
		actorID  uint
		role     models.Role
		ownerID  uint
		bookerID uint
		want     Capability
	}{
		{"admin beats everything", 9, models.RoleAdmin, 1, 2, Admin},
		{"owner", 1, models.RoleUser, 1, 2, Owner},
		{"booker", 2, models.RoleUser, 1, 2, Booker},
		{"stranger", 3, models.RoleUser, 1, 2, None},
		{"no second party", 2, models.RoleUser, 1, 0, None},
		// actorID 为 0 不能撞上「无第二参与方」哨兵
		{"zero actor", 0, models.RoleUser, 1, 0, None},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := For(tc.actorID, tc.role, tc.ownerID, tc.bookerID)
			if got != tc.want {
				t.Errorf("For(%d, %s, %d, %d) = %v, want %v",
					tc.actorID, tc.role, tc.ownerID, tc.bookerID, got, tc.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	if None.Allowed() {
		t.Error("None must not be allowed")
	}
	for _, c := range []Capability{Owner, Booker, Admin} {
		if !c.Allowed() {
			t.Errorf("%v should be allowed", c)
		}
	}
}
