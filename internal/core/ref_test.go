package core

import (
	"encoding/json"
	"testing"
)

func TestRefUnmarshal(t *testing.T) {
	var p Payment
	if err := json.Unmarshal([]byte(`{"tenant":"t1","amountPaid":"250.5","date":"2024-02-01"}`), &p); err != nil {
		t.Fatalf("unmarshal id: %v", err)
	}
	if p.Tenant.ID != "t1" || p.Tenant.Doc != nil {
		t.Fatalf("tenant ref = %+v", p.Tenant)
	}
	if p.AmountPaid != MustMoney("250.50") {
		t.Fatalf("amount = %s", p.AmountPaid)
	}

	if err := json.Unmarshal([]byte(`{"tenant":{"_id":"t2","tenantName":"Esi"}}`), &p); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if p.Tenant.ID != "t2" || p.Tenant.Doc == nil || p.Tenant.Doc.TenantName != "Esi" {
		t.Fatalf("populated ref = %+v", p.Tenant)
	}

	if err := json.Unmarshal([]byte(`{"tenant":42}`), &p); err == nil {
		t.Fatal("expected error for numeric ref")
	}
}

func TestRefMarshal(t *testing.T) {
	cases := []struct {
		name string
		ref  Ref[Driver]
		want string
	}{
		{"empty", Ref[Driver]{}, `null`},
		{"bare id", RefTo[Driver]("d1"), `"d1"`},
	}
	for _, tc := range cases {
		out, err := json.Marshal(tc.ref)
		if err != nil || string(out) != tc.want {
			t.Fatalf("%s: got %s (err=%v), want %s", tc.name, out, err, tc.want)
		}
	}

	d := Driver{FirstName: "Yaw", LastName: "Mensah"}
	d.ID = "d9"
	out, err := json.Marshal(Populated("d9", d))
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back["_id"] != "d9" || back["firstName"] != "Yaw" {
		t.Fatalf("populated marshal = %s", out)
	}
}
