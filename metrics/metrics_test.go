package metrics

import "testing"

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder

	// None of these may panic on a nil receiver.
	r.ConnectionAccepted()
	r.ConnectionClosed()
	r.Command("get")
	r.KeysExpired(3)
	r.Published(2)

	if got := r.Registry(); got != nil {
		t.Errorf("Registry() on nil Recorder = %v, want nil", got)
	}
}

func TestRecorderCountsCommands(t *testing.T) {
	r := NewRecorder()
	r.Command("get")
	r.Command("get")
	r.Command("set")

	mfs, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather error = %v", err)
	}

	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "respkv_commands_total" {
			continue
		}
		found = true
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "command" && l.GetValue() == "get" {
					if got := m.GetCounter().GetValue(); got != 2 {
						t.Errorf("respkv_commands_total{command=get} = %v, want 2", got)
					}
				}
			}
		}
	}
	if !found {
		t.Fatal("respkv_commands_total metric not registered")
	}
}
