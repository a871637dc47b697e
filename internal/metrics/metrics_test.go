package metrics

import "testing"

func TestRegistryGathers(t *testing.T) {
	reg := NewRegistry()
	SetBuildInfo("test", "sha", "date")
	DeviceConnected()
	CallStart()
	CallEnd("ok")
	NotificationForwarded()
	OperatorConnected()
	OperatorDisconnected()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	want := map[string]bool{
		"groovelink_build_info":            false,
		"groovelink_device_connects_total": false,
		"groovelink_calls_total":           false,
		"groovelink_notifications_total":   false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("metric %s missing from gather output", name)
		}
	}
}
