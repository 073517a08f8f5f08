package simulator

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// actionDelay separates the synchronous OK from the asynchronous
// +HTTPACTION completion report, the way real hardware behaves.
const actionDelay = 50 * time.Millisecond

type session struct {
	sim    *ModemSim
	conn   net.Conn
	reader *bufio.Reader

	regPolls int
	httpOpen bool
	url      string
}

func (ms *ModemSim) handleConnection(conn net.Conn) {
	defer ms.wg.Done()
	defer conn.Close()
	sess := &session{
		sim:    ms,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
	sess.run()
}

func (s *session) run() {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				s.sim.log.Println("read command failed:", err)
			}
			return
		}
		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		s.handle(command)
	}
}

func (s *session) reply(lines ...string) {
	var sb strings.Builder
	sb.WriteString("\r\n")
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}
	if _, err := s.conn.Write([]byte(sb.String())); err != nil {
		s.sim.log.Println("write reply failed:", err)
	}
}

func (s *session) handle(command string) {
	scenario := s.sim.currentScenario()
	switch {
	case command == "AT" || command == "ATE0" ||
		strings.HasPrefix(command, "AT+CMGF") ||
		strings.HasPrefix(command, "AT+CGDCONT") ||
		strings.HasPrefix(command, "AT+CGACT") ||
		strings.HasPrefix(command, "AT+CGPS") && !strings.HasPrefix(command, "AT+CGPSINFO") ||
		strings.HasPrefix(command, "AT+CGNSSPWR") ||
		strings.HasPrefix(command, "AT+HTTPSSL"):
		s.reply("OK")

	case command == "AT+CPIN?":
		s.reply("+CPIN: READY", "OK")

	case command == "AT+CSQ":
		s.reply("+CSQ: 21,0", "OK")

	case command == "AT+CGREG?":
		s.regPolls++
		code := "2"
		if s.regPolls > scenario.RegistrationPolls {
			code = "1"
		}
		s.reply("+CGREG: 0,"+code, "OK")

	case command == "AT+CGPSINFO":
		fix := scenario.Fix
		if fix == "" {
			fix = ",,,,,,,,"
		}
		s.reply("+CGPSINFO: "+fix, "OK")

	case command == "AT+HTTPINIT":
		if s.httpOpen {
			s.reply("ERROR")
			return
		}
		s.httpOpen = true
		s.reply("OK")

	case command == "AT+HTTPTERM":
		s.httpOpen = false
		s.url = ""
		s.reply("OK")

	case strings.HasPrefix(command, `AT+HTTPPARA="URL",`):
		s.url = strings.Trim(strings.TrimPrefix(command, `AT+HTTPPARA="URL",`), `"`)
		s.reply("OK")

	case strings.HasPrefix(command, "AT+HTTPPARA"):
		s.reply("OK")

	case strings.HasPrefix(command, "AT+HTTPDATA="):
		s.handleUpload(command)

	case command == "AT+HTTPACTION=1":
		s.handleAction(scenario)

	case strings.HasPrefix(command, "AT+HTTPREAD"):
		body := scenario.ResponseBody
		s.reply(fmt.Sprintf("+HTTPREAD: %d", len(body)), body, "+HTTPREAD: 0", "OK")

	default:
		s.sim.log.Println("unrecognized command:", command)
		s.reply("ERROR")
	}
}

// handleUpload announces readiness, consumes exactly the announced number
// of raw body bytes and acknowledges them.
func (s *session) handleUpload(command string) {
	spec := strings.TrimPrefix(command, "AT+HTTPDATA=")
	fields := strings.Split(spec, ",")
	size, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || size <= 0 {
		s.reply("ERROR")
		return
	}
	s.reply("DOWNLOAD")
	body := make([]byte, size)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		s.sim.log.Println("body read failed:", err)
		return
	}
	s.sim.log.Println("body received:", string(body))
	s.reply("OK")
}

func (s *session) handleAction(scenario Scenario) {
	if !s.httpOpen {
		s.reply("ERROR")
		return
	}
	status := scenario.HTTPStatus
	if scenario.RejectPlainHTTP && strings.HasPrefix(s.url, "http://") {
		// 7xx is the hardware's own transport error band.
		status = 706
	}
	s.reply("OK")
	time.Sleep(actionDelay)
	s.reply(fmt.Sprintf("+HTTPACTION: 1,%d,%d", status, len(scenario.ResponseBody)))
}
