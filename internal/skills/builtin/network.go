// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builtin

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// connectivityProbe is dialed by test_network_connectivity. A public DNS
// resolver on 53 answers from essentially any network.
const connectivityProbe = "1.1.1.1:53"

// NetworkSkill answers basic network questions about the local host.
type NetworkSkill struct {
	speaker speech.Speaker
	dial    func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// NewNetworkSkill creates the skill. dial overrides the prober in tests;
// nil uses net.DialTimeout.
func NewNetworkSkill(speaker speech.Speaker, dial func(network, addr string, timeout time.Duration) (net.Conn, error)) *NetworkSkill {
	if dial == nil {
		dial = net.DialTimeout
	}
	return &NetworkSkill{speaker: speaker, dial: dial}
}

func (s *NetworkSkill) Name() string { return "network" }

func (s *NetworkSkill) Intents() []string {
	return []string{"get_ip_config", "test_network_connectivity", "test_port"}
}

func (s *NetworkSkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^what(?:'s| is) my ip(?: address)?\??$`, Intent: "get_ip_config"},
		{Pattern: `^(?:show|get) (?:ip|network) config(?:uration)?$`, Intent: "get_ip_config"},
		{Pattern: `^(?:test|check) (?:the )?(?:network|internet)(?: connectivity| connection)?$`, Intent: "test_network_connectivity"},
		{Pattern: `^am i online\??$`, Intent: "test_network_connectivity"},
		{Pattern: `^(?:test|check) port (?P<port>\d+)(?: on (?P<host>.+))?$`, Intent: "test_port"},
	}
}

func (s *NetworkSkill) Handle(intent string, slots map[string]string) (bool, error) {
	switch intent {
	case "get_ip_config":
		return s.ipConfig()
	case "test_network_connectivity":
		return s.connectivity()
	case "test_port":
		return s.testPort(slots["host"], slots["port"])
	}
	return false, nil
}

func (s *NetworkSkill) ipConfig() (bool, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		s.speaker.Speak(fmt.Sprintf("I could not read the network configuration: %v", err))
		return true, nil
	}

	var ips []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		ips = append(ips, ipNet.IP.String())
	}

	if len(ips) == 0 {
		s.speaker.Speak("No active network addresses found.")
		return true, nil
	}
	s.speaker.Speak("Your IP addresses: " + strings.Join(ips, ", ") + ".")
	return true, nil
}

func (s *NetworkSkill) connectivity() (bool, error) {
	start := time.Now()
	conn, err := s.dial("tcp", connectivityProbe, 3*time.Second)
	if err != nil {
		s.speaker.Speak("The network appears to be down.")
		return true, nil
	}
	conn.Close()
	s.speaker.Speak(fmt.Sprintf("The network is up, %d ms to %s.", time.Since(start).Milliseconds(), connectivityProbe))
	return true, nil
}

func (s *NetworkSkill) testPort(host, port string) (bool, error) {
	if port == "" {
		s.speaker.Speak("Which port should I test?")
		return true, nil
	}
	if host == "" {
		host = "localhost"
	}

	addr := net.JoinHostPort(host, port)
	conn, err := s.dial("tcp", addr, 3*time.Second)
	if err != nil {
		s.speaker.Speak(fmt.Sprintf("Port %s on %s is not reachable.", port, host))
		return true, nil
	}
	conn.Close()
	s.speaker.Speak(fmt.Sprintf("Port %s on %s is open.", port, host))
	return true, nil
}
