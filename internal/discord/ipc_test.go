package discord

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// writeRaw writes a frame the way Discord does
func writeRaw(t *testing.T, conn net.Conn, opcode uint32, payload []byte) {
	t.Helper()
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], opcode)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := conn.Write(append(header, payload...)); err != nil {
		t.Errorf("write frame: %v", err)
	}
}

func readRaw(t *testing.T, conn net.Conn) (uint32, []byte) {
	t.Helper()
	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	body := make([]byte, binary.LittleEndian.Uint32(header[4:8]))
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return binary.LittleEndian.Uint32(header[0:4]), body
}

func TestWriteFrame(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	payload := `{"cmd":"SET_ACTIVITY","nonce":"abc123"}`
	go func() {
		if err := c.writeFrame(opFrame, []byte(payload)); err != nil {
			t.Errorf("writeFrame: %v", err)
		}
	}()

	opcode, body := readRaw(t, server)
	if opcode != opFrame {
		t.Errorf("opcode = %d, want %d", opcode, opFrame)
	}
	if string(body) != payload {
		t.Errorf("body = %q, want %q", body, payload)
	}
}

func TestReadFrame_LargePayload(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: server}
	large := []byte(strings.Repeat("x", 4096))
	go writeRaw(t, client, opFrame, large)

	opcode, payload, err := c.readFrame()
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if opcode != opFrame || len(payload) != len(large) {
		t.Errorf("readFrame = %d, %d bytes; want %d, %d bytes", opcode, len(payload), opFrame, len(large))
	}
}

func TestSetActivity_Payload(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	errc := make(chan error, 1)
	go func() { errc <- c.SetActivity(Activity{Type: activityListening, Details: "Song"}) }()

	_, body := readRaw(t, server)
	var req struct {
		Cmd   string `json:"cmd"`
		Nonce string `json:"nonce"`
		Args  struct {
			Activity *Activity `json:"activity"`
		} `json:"args"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if req.Cmd != "SET_ACTIVITY" || req.Args.Activity == nil || req.Args.Activity.Details != "Song" {
		t.Errorf("request = %s", body)
	}
	if _, err := uuid.Parse(req.Nonce); err != nil {
		t.Errorf("nonce %q is not a uuid: %v", req.Nonce, err)
	}

	writeRaw(t, server, opFrame, []byte(`{"evt":null}`))
	if err := <-errc; err != nil {
		t.Errorf("SetActivity() error = %v", err)
	}
}

func TestSetActivity_ClearSendsNull(t *testing.T) {
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	c := &ipcClient{conn: client}
	errc := make(chan error, 1)
	go func() { errc <- c.SetActivity(Activity{}) }()

	_, body := readRaw(t, server)
	if !strings.Contains(string(body), `"activity":null`) {
		t.Errorf("clear request = %s, want a null activity", body)
	}

	writeRaw(t, server, opFrame, []byte(`{"evt":"ERROR","data":{"code":4000,"message":"bad"}}`))
	if err := <-errc; err == nil || !strings.Contains(err.Error(), "4000") {
		t.Errorf("SetActivity() error = %v, want discord error 4000", err)
	}
}
