/*
 * Copyright 2024, Richard Cornwell
 */

package configparser

import (
	"strings"
	"testing"

	"github.com/cdcpp/ppcore/channel"
)

func registerTestModel(t *testing.T, name string) (chanNo, eqNo int, param string) {
	t.Helper()
	RegisterModel(name, func(reg *channel.Registry, c, e int, p string) error {
		chanNo, eqNo, param = c, e, p
		_, err := reg.Attach(c, e, channel.DtLp5xx)
		return err
	})
	t.Cleanup(func() { delete(models, strings.ToUpper(name)) })
	return
}

func TestParseAttachesDeviceWithParamString(t *testing.T) {
	var gotChan, gotEq int
	var gotParam string
	RegisterModel("testmodelA", func(_ *channel.Registry, c, e int, p string) error {
		gotChan, gotEq, gotParam = c, e, p
		return nil
	})
	t.Cleanup(func() { delete(models, "TESTMODELA") })

	reg := channel.NewRegistry()
	cfg := "[channel 12]\n1 = testmodelA, /tmp,3555,ansi\n"
	if err := Parse(reg, strings.NewReader(cfg)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if gotChan != 0o12 || gotEq != 1 {
		t.Fatalf("got chan=%#o eq=%#o, want 012,1", gotChan, gotEq)
	}
	if gotParam != "/tmp,3555,ansi" {
		t.Fatalf("param = %q, want %q", gotParam, "/tmp,3555,ansi")
	}
}

func TestParseUnknownModelIsError(t *testing.T) {
	reg := channel.NewRegistry()
	cfg := "[channel 0]\n0 = nosuchmodel\n"
	if err := Parse(reg, strings.NewReader(cfg)); err == nil {
		t.Fatalf("expected an error for an unregistered model")
	}
}

func TestParseDeviceLineBeforeSectionIsError(t *testing.T) {
	reg := channel.NewRegistry()
	if err := Parse(reg, strings.NewReader("0 = testmodelA\n")); err == nil {
		t.Fatalf("expected an error for a device line outside any section")
	}
}

func TestParseCyberSectionPopulatesGlobalConfig(t *testing.T) {
	reg := channel.NewRegistry()
	cfg := "[cyber]\nprintapp = /usr/bin/lpprint\nautoremovepaper = 1\n"
	if err := Parse(reg, strings.NewReader(cfg)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := GlobalConfig()
	if got.PrintApp != "/usr/bin/lpprint" || !got.AutoRemovePaper {
		t.Fatalf("got %+v, want PrintApp=/usr/bin/lpprint AutoRemovePaper=true", got)
	}
}

func TestParseCyberSectionUnknownKeyIsError(t *testing.T) {
	reg := channel.NewRegistry()
	cfg := "[cyber]\nbogus = 1\n"
	if err := Parse(reg, strings.NewReader(cfg)); err == nil {
		t.Fatalf("expected an error for an unknown [cyber] setting")
	}
}

func TestParseCommentsAndBlankLinesIgnored(t *testing.T) {
	registerTestModel(t, "testmodelB")
	reg := channel.NewRegistry()
	cfg := "# a comment\n\n[channel 1]\n# another comment\n\n0 = testmodelB\n"
	if err := Parse(reg, strings.NewReader(cfg)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if reg.GetSlot(1, 0) == nil {
		t.Fatalf("device was not attached")
	}
}
