package outreach

import (
	"net/smtp"
	"strings"
	"testing"
)

func testMailerConfig() Config {
	return Config{
		Host:     "smtp.example.org",
		Port:     "587",
		User:     "lend@example.org",
		Password: "hunter2",
		From:     "lend@example.org",
	}
}

func TestOutreachBodyListsCategories(t *testing.T) {
	body := OutreachBody("Harbor House", "")

	if !strings.Contains(body, "Hello Harbor House,") {
		t.Errorf("Expected greeting with shelter name, got:\n%s", body)
	}
	for _, category := range []string{"Fruit", "Snack", "Drink"} {
		if !strings.Contains(body, category) {
			t.Errorf("Expected body to list %s", category)
		}
	}
	if strings.Contains(body, "Additional note") {
		t.Error("Expected no custom section without a custom message")
	}
}

func TestOutreachBodyCustomMessage(t *testing.T) {
	body := OutreachBody("Harbor House", "We have extra fruit this week.")
	if !strings.Contains(body, "Additional note: We have extra fruit this week.") {
		t.Errorf("Expected custom section, got:\n%s", body)
	}
}

func TestSendOutreach(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewMailer(testMailerConfig())
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := m.SendOutreach("Harbor House", "intake@harborhouse.org", ""); err != nil {
		t.Fatalf("SendOutreach failed: %v", err)
	}
	if gotAddr != "smtp.example.org:587" {
		t.Errorf("Expected smtp addr with port, got %q", gotAddr)
	}
	if gotFrom != "lend@example.org" {
		t.Errorf("Unexpected from address %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "intake@harborhouse.org" {
		t.Errorf("Unexpected recipients %v", gotTo)
	}
	text := string(gotMsg)
	if !strings.Contains(text, "Subject: "+outreachSubject) {
		t.Errorf("Expected subject header, got:\n%s", text)
	}
	if !strings.Contains(text, "Hello Harbor House,") {
		t.Errorf("Expected rendered body, got:\n%s", text)
	}
}

func TestSendOutreachUnconfigured(t *testing.T) {
	m := NewMailer(Config{})
	if m.Configured() {
		t.Error("Expected empty config to report unconfigured")
	}
	if err := m.SendOutreach("Harbor House", "intake@harborhouse.org", ""); err == nil {
		t.Error("Expected send to fail without SMTP configuration")
	}
}
