package hub

import (
	"errors"
	"testing"
)

// =============================================================================
// Encoding Tests
// =============================================================================

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"poll broadcast", "p", "p|7C00\n"},
		{"metadata request", "0>m", "0>m|2BCC\n"},
		{"set outputs", "0>s:0,1", "0>s:0,1|EFE3\n"},
		// The checksum is rendered without zero-padding, matching what
		// board firmware computes and compares against.
		{"short checksum", "0>s:1", "0>s:1|28D\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(EncodeFrame(tt.body)); got != tt.want {
				t.Errorf("EncodeFrame(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Decoding Tests
// =============================================================================

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantIndex int
		wantCmd   Command
		wantArgs  string
	}{
		{"bare command", "0>m|2BCC", 0, CmdMetadata, ""},
		{"values", "0>v:23.5|47AE", 0, CmdValues, "23.5"},
		{"multiple values", "2>v:1.5,2.5|45F4", 2, CmdValues, "1.5,2.5"},
		{"metadata reply", "0>m:1;devA;i,temp;o,relay|8F1F", 0, CmdMetadata, "1;devA;i,temp;o,relay"},
		{"trailing terminators", "0>v:23.5|47AE\r\n", 0, CmdValues, "23.5"},
		{"trailing spaces", "0>v:23.5|47AE  \n", 0, CmdValues, "23.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeFrame([]byte(tt.line))
			if err != nil {
				t.Fatalf("DecodeFrame(%q) error = %v", tt.line, err)
			}
			if ev.DeviceIndex != tt.wantIndex {
				t.Errorf("DeviceIndex = %d, want %d", ev.DeviceIndex, tt.wantIndex)
			}
			if ev.Command != tt.wantCmd {
				t.Errorf("Command = %q, want %q", ev.Command, tt.wantCmd)
			}
			if ev.Args != tt.wantArgs {
				t.Errorf("Args = %q, want %q", ev.Args, tt.wantArgs)
			}
		})
	}
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	tests := []struct {
		body string
		want Event
	}{
		{"0>m", Event{DeviceIndex: 0, Command: CmdMetadata}},
		{"3>v:1.5,2.5,3.5", Event{DeviceIndex: 3, Command: CmdValues, Args: "1.5,2.5,3.5"}},
		{"12>m:1;greenhouse-1;i,temp,DS18B20,C", Event{DeviceIndex: 12, Command: CmdMetadata, Args: "1;greenhouse-1;i,temp,DS18B20,C"}},
	}

	for _, tt := range tests {
		ev, err := DecodeFrame(EncodeFrame(tt.body))
		if err != nil {
			t.Errorf("DecodeFrame(EncodeFrame(%q)) error = %v", tt.body, err)
			continue
		}
		if ev != tt.want {
			t.Errorf("DecodeFrame(EncodeFrame(%q)) = %+v, want %+v", tt.body, ev, tt.want)
		}
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"no checksum separator", "0>v:23.5", ErrChecksumMissing},
		{"empty line", "", ErrChecksumMissing},
		{"unparseable checksum", "0>v:23.5|ZZZZ", ErrChecksumMismatch},
		{"wrong checksum", "0>v:23.5|1234", ErrChecksumMismatch},
		{"corrupted body", "0>v:24.5|47AE", ErrChecksumMismatch},
		{"no index separator", "p|7C00", ErrMalformedIndex},
		{"non-numeric index", "abc>v:1|A42E", ErrMalformedIndex},
		{"negative index", "-1>v:1|B833", ErrMalformedIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame([]byte(tt.line))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeFrame(%q) error = %v, want %v", tt.line, err, tt.wantErr)
			}
		})
	}
}

func TestDecodeFrameUnknownCommand(t *testing.T) {
	// Multi-letter commands decode successfully with a zero Command; the
	// router drops them instead of the codec.
	ev, err := DecodeFrame([]byte("0>vv:1|56CF"))
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if ev.Command != 0 {
		t.Errorf("Command = %q, want zero", ev.Command)
	}
}
