// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lower

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/probechain/snowgen/lang/analysis"
	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/format"
)

func lit(line int, s string) *ast.Literal {
	return &ast.Literal{Pos: ast.Pos{LineNo: line}, Value: []rune(s)}
}

func routine(ident string, body ast.Command) *ast.Define {
	n := &ast.Name{Kind: ast.KindRoutine, Ident: ident, Definition: body}
	return &ast.Define{Name: n, Body: body}
}

func lowerBody(t *testing.T, body ast.Command) (string, *Context) {
	t.Helper()
	w := format.New("TestStemmer")
	ctx := NewContext(w, analysis.New(), nil)
	if err := ctx.Routine(routine("r", body)); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	return w.String(), ctx
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func checkOutput(t *testing.T, got, want string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestOrTwoAlternatives(t *testing.T) {
	body := &ast.Or{
		Pos:          ast.Pos{LineNo: 1},
		Alternatives: []ast.Command{lit(2, "a"), lit(3, "b")},
	}
	got, ctx := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # or, line 1",
		"    try:",
		"        v_1 = self.cursor",
		"        try:",
		"            # literalstring, line 2",
		`            if not self.eq_s(1, u"a"):`,
		"                raise lab1()",
		"            raise lab0()",
		"        except lab1: pass",
		"        self.cursor = v_1",
		"        # literalstring, line 3",
		`        if not self.eq_s(1, u"b"):`,
		"            return False",
		"    except lab0: pass",
		"    return True",
	))
	if ctx.MaxLabel() != 1 {
		t.Errorf("max label = %d, want 1", ctx.MaxLabel())
	}
}

func TestOrLabelPerAlternative(t *testing.T) {
	for n := 2; n <= 6; n++ {
		alts := make([]ast.Command, n)
		for i := range alts {
			alts[i] = lit(i+2, "x")
		}
		got, ctx := lowerBody(t, &ast.Or{Pos: ast.Pos{LineNo: 1}, Alternatives: alts})

		// One failure label per alternative but the last, plus the exit.
		if ctx.Labels() != n {
			t.Errorf("%d alternatives: %d labels, want %d", n, ctx.Labels(), n)
		}
		if c := strings.Count(got, "except lab"); c != n {
			t.Errorf("%d alternatives: %d handlers, want %d", n, c, n)
		}
	}
}

func TestOrNeedsTwoAlternatives(t *testing.T) {
	w := format.New("TestStemmer")
	ctx := NewContext(w, nil, nil)
	body := &ast.Or{Pos: ast.Pos{LineNo: 7}, Alternatives: []ast.Command{lit(7, "a")}}

	err := ctx.Routine(routine("r", body))
	var defect *DefectError
	if !errors.As(err, &defect) {
		t.Fatalf("expected *DefectError, got %v", err)
	}
	if defect.Construct != "or" || defect.Line != 7 {
		t.Errorf("defect names %q at line %d, want \"or\" at line 7", defect.Construct, defect.Line)
	}
}

func TestUnknownExpressionIsDefect(t *testing.T) {
	ctx := NewContext(format.New("TestStemmer"), nil, nil)
	body := &ast.Loop{Pos: ast.Pos{LineNo: 3}, Body: lit(3, "a")}

	err := ctx.Routine(routine("r", body))
	var defect *DefectError
	if !errors.As(err, &defect) || defect.Construct != "loop" {
		t.Fatalf("expected defect on loop, got %v", err)
	}
}

func TestOrReachableWhenLastAlternativeFails(t *testing.T) {
	body := &ast.Or{
		Pos:          ast.Pos{LineNo: 1},
		Alternatives: []ast.Command{lit(2, "a"), &ast.False{Pos: ast.Pos{LineNo: 3}}},
	}
	got, _ := lowerBody(t, body)
	if !strings.HasSuffix(got, "    except lab0: pass\n    return True\n") {
		t.Errorf("code after or must stay reachable:\n%s", got)
	}
}

func TestRepeatLiteral(t *testing.T) {
	body := &ast.Repeat{Pos: ast.Pos{LineNo: 1}, Body: lit(2, "x")}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # repeat, line 1",
		"    try:",
		"        while True:",
		"            try:",
		"                try:",
		"                    # literalstring, line 2",
		`                    if not self.eq_s(1, u"x"):`,
		"                        raise lab2()",
		"                    raise lab1()",
		"                except lab2: pass",
		"                raise lab0()",
		"            except lab1: pass",
		"    except lab0: pass",
		"    return True",
	))
}

func TestRepeatRestoresCostlyBody(t *testing.T) {
	body := &ast.Repeat{
		Pos:  ast.Pos{LineNo: 1},
		Body: &ast.Bra{Pos: ast.Pos{LineNo: 2}, Body: []ast.Command{lit(2, "a"), lit(2, "b")}},
	}
	got, _ := lowerBody(t, body)
	for _, want := range []string{
		"                v_1 = self.cursor\n",
		"                except lab2: pass\n                self.cursor = v_1\n                raise lab0()\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestAmongWithoutCommands(t *testing.T) {
	x := &ast.Among{
		Number: 0,
		Entries: []ast.AmongEntry{
			{Literal: []rune("a"), Index: -1, Result: 1},
			{Literal: []rune("b"), Index: -1, Result: 1},
			{Literal: []rune("c"), Index: -1, Result: 1},
		},
	}
	got, _ := lowerBody(t, &ast.AmongDispatch{Pos: ast.Pos{LineNo: 1}, Among: x})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # among, line 1",
		"    if self.find_among(TestStemmer.a_0, 3) == 0:",
		"        return False",
		"    return True",
	))
}

func TestAmongDispatchCases(t *testing.T) {
	x := &ast.Among{
		Number: 1,
		Entries: []ast.AmongEntry{
			{Literal: []rune("s"), Index: -1, Result: 1},
			{Literal: []rune("ss"), Index: 0, Result: 2},
		},
		CommandCount: 2,
	}
	body := &ast.AmongDispatch{
		Pos:   ast.Pos{LineNo: 1},
		Mode:  ast.Backward,
		Among: x,
		Cases: []ast.Command{
			&ast.Bra{Pos: ast.Pos{LineNo: 2}, Body: []ast.Command{&ast.Delete{Pos: ast.Pos{LineNo: 3}}}},
			&ast.Bra{Pos: ast.Pos{LineNo: 4}},
		},
	}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # among, line 1",
		"    among_var = self.find_among_b(TestStemmer.a_1, 2)",
		"    if among_var == 0:",
		"        return False",
		"    if among_var == 1:",
		"        # (, line 2",
		"        # delete, line 3",
		"        if not self.slice_del():",
		"            return False",
		"    elif among_var == 2:",
		"        # (, line 4",
		"        pass",
		"    return True",
	))
}

func TestAmongResultWithoutCase(t *testing.T) {
	x := &ast.Among{
		Entries:      []ast.AmongEntry{{Literal: []rune("s"), Index: -1, Result: 3}},
		CommandCount: 1,
	}
	body := &ast.AmongDispatch{
		Pos:   ast.Pos{LineNo: 5},
		Among: x,
		Cases: []ast.Command{&ast.Bra{Pos: ast.Pos{LineNo: 5}}},
	}
	err := NewContext(format.New("S"), nil, nil).Routine(routine("r", body))
	var defect *DefectError
	if !errors.As(err, &defect) || defect.Line != 5 {
		t.Fatalf("expected defect at line 5, got %v", err)
	}
}

func TestNot(t *testing.T) {
	got, _ := lowerBody(t, &ast.Not{Pos: ast.Pos{LineNo: 1}, Body: lit(2, "a")})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # not, line 1",
		"    v_1 = self.cursor",
		"    try:",
		"        # literalstring, line 2",
		`        if not self.eq_s(1, u"a"):`,
		"            raise lab0()",
		"        return False",
		"    except lab0: pass",
		"    self.cursor = v_1",
		"    return True",
	))
}

func TestGoPast(t *testing.T) {
	got, _ := lowerBody(t, &ast.GoPast{Pos: ast.Pos{LineNo: 1}, Body: lit(2, "a")})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # gopast, line 1",
		"    try:",
		"        while True:",
		"            try:",
		"                # literalstring, line 2",
		`                if not self.eq_s(1, u"a"):`,
		"                    raise lab1()",
		"                raise lab0()",
		"            except lab1: pass",
		"            if self.cursor >= self.limit:",
		"                return False",
		"            self.cursor += 1",
		"    except lab0: pass",
		"    return True",
	))
}

func TestGoToBackwardRestoresBeforeExit(t *testing.T) {
	got, _ := lowerBody(t, &ast.GoTo{Pos: ast.Pos{LineNo: 1}, Mode: ast.Backward, Body: lit(2, "a")})
	for _, want := range []string{
		"            v_1 = self.limit - self.cursor\n",
		"                self.cursor = self.limit - v_1\n                raise lab0()\n",
		"            if self.cursor <= self.limit_backward:\n",
		"            self.cursor -= 1\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestSetLimitCleanup(t *testing.T) {
	body := &ast.SetLimit{
		Pos:   ast.Pos{LineNo: 1},
		Limit: &ast.Next{Pos: ast.Pos{LineNo: 2}},
		Body:  lit(3, "a"),
	}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # setlimit, line 1",
		"    v_1 = self.cursor",
		"    # next, line 2",
		"    if self.cursor >= self.limit:",
		"        return False",
		"    self.cursor += 1",
		"    v_2 = self.limit - self.cursor",
		"    self.limit = self.cursor",
		"    self.cursor = v_1",
		"    # literalstring, line 3",
		`    if not self.eq_s(1, u"a"):`,
		"        self.limit += v_2",
		"        return False",
		"    self.limit += v_2",
		"    return True",
	))
}

func TestTryDropsOuterCleanup(t *testing.T) {
	body := &ast.SetLimit{
		Pos:   ast.Pos{LineNo: 1},
		Mode:  ast.Backward,
		Limit: &ast.ToLimit{Pos: ast.Pos{LineNo: 1}, Mode: ast.Backward},
		Body:  &ast.Try{Pos: ast.Pos{LineNo: 2}, Mode: ast.Backward, Body: lit(3, "a")},
	}
	got, _ := lowerBody(t, body)
	want := lines(
		"    try:",
		"        # literalstring, line 3",
		`        if not self.eq_s(1, u"a"):`,
		"            self.cursor = self.limit - v_3",
		"            raise lab0()",
		"    except lab0: pass",
		"    self.limit_backward = v_2",
		"    return True",
	)
	if !strings.HasSuffix(got, want) {
		t.Errorf("got:\n%s\nwant suffix:\n%s", got, want)
	}
}

func TestUnreachableCodeSuppressed(t *testing.T) {
	body := &ast.Bra{
		Pos:  ast.Pos{LineNo: 1},
		Body: []ast.Command{&ast.False{Pos: ast.Pos{LineNo: 2}}, lit(3, "a")},
	}
	got, ctx := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # (, line 1",
		"    # false, line 2",
		"    return False",
	))
	if ctx.Unreachable() {
		t.Error("unreachable flag must be cleared at routine end")
	}
}

const matcherTuple = "self.current, self.cursor, self.limit, self.limit_backward, self.bra, self.ket"

func TestDollarRestoresState(t *testing.T) {
	s := &ast.Name{Kind: ast.KindString, Ident: "w"}
	got, _ := lowerBody(t, &ast.Dollar{Pos: ast.Pos{LineNo: 1}, Name: s, Body: lit(2, "a")})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # $ w, line 1",
		"    v_1 = ("+matcherTuple+")",
		"    self.current = self.S_w",
		"    self.cursor = 0",
		"    self.limit_backward = 0",
		"    self.limit = len(self.current)",
		"    # literalstring, line 2",
		`    if not self.eq_s(1, u"a"):`,
		"        self.S_w = self.current",
		"        "+matcherTuple+" = v_1",
		"        return False",
		"    self.S_w = self.current",
		"    "+matcherTuple+" = v_1",
		"    return True",
	))
}

func TestDollarKeepsVariables(t *testing.T) {
	s := &ast.Name{Kind: ast.KindString, Ident: "w"}
	f := &ast.Name{Kind: ast.KindBoolean, Ident: "f"}
	n := &ast.Name{Kind: ast.KindInteger, Ident: "n"}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.Dollar{Pos: ast.Pos{LineNo: 2}, Name: s, Body: &ast.Bra{Pos: ast.Pos{LineNo: 2}, Body: []ast.Command{
			&ast.Set{Pos: ast.Pos{LineNo: 3}, Name: f},
			&ast.IntAssign{Pos: ast.Pos{LineNo: 4}, Op: ast.OpAssign, Name: n, Value: &ast.Number{Value: 7}},
		}}},
		&ast.BoolTest{Pos: ast.Pos{LineNo: 5}, Name: f},
	}}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # (, line 1",
		"    # $ w, line 2",
		"    v_1 = ("+matcherTuple+")",
		"    self.current = self.S_w",
		"    self.cursor = 0",
		"    self.limit_backward = 0",
		"    self.limit = len(self.current)",
		"    # (, line 2",
		"    # set f, line 3",
		"    self.B_f = True",
		"    # = n, line 4",
		"    self.I_n = 7",
		"    self.S_w = self.current",
		"    "+matcherTuple+" = v_1",
		"    # booltest f, line 5",
		"    if not self.B_f:",
		"        return False",
		"    return True",
	))
	if strings.Contains(got, "copy_from") {
		t.Errorf("variables must not be restored after $:\n%s", got)
	}
}

func TestAndRestoresBetweenItems(t *testing.T) {
	body := &ast.And{Pos: ast.Pos{LineNo: 1}, Items: []ast.Command{lit(2, "a"), lit(3, "b"), lit(4, "c")}}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # and, line 1",
		"    v_1 = self.cursor",
		"    # literalstring, line 2",
		`    if not self.eq_s(1, u"a"):`,
		"        return False",
		"    self.cursor = v_1",
		"    # literalstring, line 3",
		`    if not self.eq_s(1, u"b"):`,
		"        return False",
		"    self.cursor = v_1",
		"    # literalstring, line 4",
		`    if not self.eq_s(1, u"c"):`,
		"        return False",
		"    return True",
	))
}

func TestTestRestoresCursor(t *testing.T) {
	got, _ := lowerBody(t, &ast.Test{Pos: ast.Pos{LineNo: 1}, Body: lit(2, "a")})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # test, line 1",
		"    v_1 = self.cursor",
		"    # literalstring, line 2",
		`    if not self.eq_s(1, u"a"):`,
		"        return False",
		"    self.cursor = v_1",
		"    return True",
	))
}

func TestReverseBackward(t *testing.T) {
	body := &ast.Reverse{
		Pos:  ast.Pos{LineNo: 1},
		Mode: ast.Backward,
		Body: &ast.Literal{Pos: ast.Pos{LineNo: 2}, Mode: ast.Backward, Value: []rune("a")},
	}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # reverse, line 1",
		"    v_1 = self.limit - self.cursor",
		"    # literalstring, line 2",
		`    if not self.eq_s_b(1, u"a"):`,
		"        return False",
		"    self.cursor = self.limit - v_1",
		"    return True",
	))
}

func TestDo(t *testing.T) {
	got, _ := lowerBody(t, &ast.Do{Pos: ast.Pos{LineNo: 1}, Body: lit(2, "a")})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # do, line 1",
		"    v_1 = self.cursor",
		"    try:",
		"        # literalstring, line 2",
		`        if not self.eq_s(1, u"a"):`,
		"            raise lab0()",
		"    except lab0: pass",
		"    self.cursor = v_1",
		"    return True",
	))
}

func TestFailAfterBody(t *testing.T) {
	got, ctx := lowerBody(t, &ast.Fail{Pos: ast.Pos{LineNo: 1}, Body: lit(2, "a")})
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # fail, line 1",
		"    # literalstring, line 2",
		`    if not self.eq_s(1, u"a"):`,
		"        return False",
		"    return False",
	))
	if ctx.Labels() != 0 {
		t.Errorf("fail allocated %d labels", ctx.Labels())
	}
}

func TestAtLeast(t *testing.T) {
	body := &ast.AtLeast{Pos: ast.Pos{LineNo: 1}, Count: &ast.Number{Value: 2}, Body: lit(2, "a")}
	got, ctx := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # atleast, line 1",
		"    v_1 = 2",
		"    try:",
		"        while True:",
		"            try:",
		"                try:",
		"                    # literalstring, line 2",
		`                    if not self.eq_s(1, u"a"):`,
		"                        raise lab2()",
		"                    v_1 -= 1",
		"                    raise lab1()",
		"                except lab2: pass",
		"                raise lab0()",
		"            except lab1: pass",
		"    except lab0: pass",
		"    if v_1 > 0:",
		"        return False",
		"    return True",
	))
	if ctx.MaxLabel() != 2 {
		t.Errorf("max label = %d, want 2", ctx.MaxLabel())
	}
}

func TestCursorBoundaryChecks(t *testing.T) {
	n := &ast.Name{Kind: ast.KindInteger, Ident: "n"}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.Hop{Pos: ast.Pos{LineNo: 2}, Count: &ast.Number{Value: 2}},
		&ast.Hop{Pos: ast.Pos{LineNo: 3}, Mode: ast.Backward, Count: &ast.VarRef{Name: n}},
		&ast.ToMark{Pos: ast.Pos{LineNo: 4}, Target: &ast.VarRef{Name: n}},
		&ast.ToMark{Pos: ast.Pos{LineNo: 5}, Mode: ast.Backward, Target: &ast.Number{Value: 1}},
		&ast.AtMark{Pos: ast.Pos{LineNo: 6}, Target: &ast.Number{Value: 3}},
		&ast.AtLimit{Pos: ast.Pos{LineNo: 7}},
		&ast.AtLimit{Pos: ast.Pos{LineNo: 8}, Mode: ast.Backward},
	}}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # (, line 1",
		"    # hop, line 2",
		"    v_1 = self.cursor + 2",
		"    if 0 > v_1 or v_1 > self.limit:",
		"        return False",
		"    self.cursor = v_1",
		"    # hop, line 3",
		"    v_2 = self.cursor - self.I_n",
		"    if self.limit_backward > v_2 or v_2 > self.limit:",
		"        return False",
		"    self.cursor = v_2",
		"    # tomark, line 4",
		"    if self.cursor > self.I_n:",
		"        return False",
		"    self.cursor = self.I_n",
		"    # tomark, line 5",
		"    if self.cursor < 1:",
		"        return False",
		"    self.cursor = 1",
		"    # atmark, line 6",
		"    if self.cursor != 3:",
		"        return False",
		"    # atlimit, line 7",
		"    if self.cursor < self.limit:",
		"        return False",
		"    # atlimit, line 8",
		"    if self.cursor > self.limit_backward:",
		"        return False",
		"    return True",
	))
}

func TestSubstringThenAmong(t *testing.T) {
	x := &ast.Among{
		Number: 2,
		Entries: []ast.AmongEntry{
			{Literal: []rune("ed"), Index: -1, Result: 1},
			{Literal: []rune("ing"), Index: -1, Result: 2},
		},
		CommandCount: 2,
		Substring:    true,
	}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.Substring{Pos: ast.Pos{LineNo: 2}, Among: x},
		lit(3, "a"),
		&ast.AmongDispatch{Pos: ast.Pos{LineNo: 4}, Among: x, Cases: []ast.Command{
			&ast.Delete{Pos: ast.Pos{LineNo: 5}},
			&ast.Bra{Pos: ast.Pos{LineNo: 6}},
		}},
	}}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # (, line 1",
		"    # substring, line 2",
		"    among_var = self.find_among(TestStemmer.a_2, 2)",
		"    if among_var == 0:",
		"        return False",
		"    # literalstring, line 3",
		`    if not self.eq_s(1, u"a"):`,
		"        return False",
		"    # among, line 4",
		"    if among_var == 1:",
		"        # delete, line 5",
		"        if not self.slice_del():",
		"            return False",
		"    elif among_var == 2:",
		"        # (, line 6",
		"        pass",
		"    return True",
	))
}

func TestVariableCommands(t *testing.T) {
	s := &ast.Name{Kind: ast.KindString, Ident: "w"}
	f := &ast.Name{Kind: ast.KindBoolean, Ident: "f"}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.NameMatch{Pos: ast.Pos{LineNo: 2}, Name: s},
		&ast.NameMatch{Pos: ast.Pos{LineNo: 3}, Mode: ast.Backward, Name: s},
		&ast.Set{Pos: ast.Pos{LineNo: 4}, Name: f},
		&ast.Unset{Pos: ast.Pos{LineNo: 5}, Name: f},
		&ast.BoolTest{Pos: ast.Pos{LineNo: 6}, Name: f},
		&ast.SliceTo{Pos: ast.Pos{LineNo: 7}, Name: s},
		&ast.AssignTo{Pos: ast.Pos{LineNo: 8}, Name: s},
		&ast.AssignFrom{Pos: ast.Pos{LineNo: 9}, Source: ast.Source{Literal: []rune("x")}},
		&ast.AssignFrom{Pos: ast.Pos{LineNo: 10}, Mode: ast.Backward, Source: ast.Source{Name: s}},
	}}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # (, line 1",
		"    # name w, line 2",
		"    if not self.eq_v(self.S_w):",
		"        return False",
		"    # name w, line 3",
		"    if not self.eq_v_b(self.S_w):",
		"        return False",
		"    # set f, line 4",
		"    self.B_f = True",
		"    # unset f, line 5",
		"    self.B_f = False",
		"    # booltest f, line 6",
		"    if not self.B_f:",
		"        return False",
		"    # -> w, line 7",
		"    self.S_w = self.slice_to(self.S_w)",
		"    if self.S_w == '':",
		"        return False",
		"    # => w, line 8",
		"    self.S_w = self.assign_to(self.S_w)",
		"    # =, line 9",
		"    v_1 = self.cursor",
		`    self.insert(self.cursor, self.limit, u"x")`,
		"    self.cursor = v_1",
		"    # =, line 10",
		"    self.insert(self.limit_backward, self.cursor, self.S_w)",
		"    return True",
	))
}

func TestIntegerCommands(t *testing.T) {
	n := &ast.Name{Kind: ast.KindInteger, Ident: "n"}
	s := &ast.Name{Kind: ast.KindString, Ident: "w"}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.IntAssign{Pos: ast.Pos{LineNo: 2}, Op: ast.OpDivideAssign, Name: n, Value: &ast.Number{Value: 2}},
		&ast.IntAssign{Pos: ast.Pos{LineNo: 3}, Op: ast.OpPlusAssign, Name: n,
			Value: &ast.Binary{Op: ast.OpMinus, X: &ast.SizeOf{Name: s}, Y: &ast.Cursor{}}},
		&ast.IntCompare{Pos: ast.Pos{LineNo: 4}, Op: ast.OpLe, Name: n, Value: &ast.MaxInt{}},
	}}
	got, _ := lowerBody(t, body)
	for _, want := range []string{
		"    self.I_n = int(self.I_n / 2)\n",
		"    self.I_n += (len(self.S_w) - self.cursor)\n",
		"    if not (self.I_n <= 2147483647):\n        return False\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestLoopCount(t *testing.T) {
	body := &ast.Loop{
		Pos:   ast.Pos{LineNo: 1},
		Count: &ast.Binary{Op: ast.OpPlus, X: &ast.Number{Value: 1}, Y: &ast.Size{}},
		Body:  &ast.Next{Pos: ast.Pos{LineNo: 2}},
	}
	got, _ := lowerBody(t, body)
	if !strings.Contains(got, "    for v_1 in range((1 + len(self.current)), 0, -1):\n        # next, line 2\n") {
		t.Errorf("unexpected loop:\n%s", got)
	}
}

func TestStemRoutineIsMangled(t *testing.T) {
	w := format.New("S")
	call := &ast.Call{Pos: ast.Pos{LineNo: 1}}
	stem := routine("stem", call)
	call.Name = stem.Name
	if err := NewContext(w, nil, nil).Routine(stem); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(w.String(), "def _r_stem(self):") {
		t.Errorf("stem not mangled:\n%s", w.String())
	}
	if !strings.Contains(w.String(), "if not self._r_stem():") {
		t.Errorf("recursive call not mangled:\n%s", w.String())
	}
}

func TestGroupingTests(t *testing.T) {
	v := &ast.Name{Kind: ast.KindGrouping, Ident: "v"}
	q := ast.NewGrouping(v, []rune("aeiouy"))
	r := &ast.Name{Kind: ast.KindGrouping, Ident: "r"}
	ast.NewGrouping(r, []rune("abc")).NoGaps = true

	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.GroupingTest{Pos: ast.Pos{LineNo: 2}, Name: v},
		&ast.GroupingTest{Pos: ast.Pos{LineNo: 3}, Mode: ast.Backward, Name: r, Complement: true},
	}}
	got, _ := lowerBody(t, body)
	if q.NoGaps {
		t.Fatal("vowels have gaps")
	}
	for _, want := range []string{
		"    # grouping v, line 2\n    if not self.in_grouping(TestStemmer.g_v, 97, 121):\n",
		"    # non r, line 3\n    if not self.out_range_b(97, 99):\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestDebugIndexes(t *testing.T) {
	d1 := &ast.Debug{Pos: ast.Pos{LineNo: 4}}
	d2 := &ast.Debug{Pos: ast.Pos{LineNo: 9}}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{d1, d2}}

	w := format.New("S")
	ctx := NewContext(w, nil, map[*ast.Debug]int{d1: 5, d2: 6})
	if err := ctx.Routine(routine("r", body)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(w.String(), "self.debug(5, 4)") || !strings.Contains(w.String(), "self.debug(6, 9)") {
		t.Errorf("preassigned debug indexes not used:\n%s", w.String())
	}

	got, _ := lowerBody(t, body)
	if !strings.Contains(got, "self.debug(0, 4)") || !strings.Contains(got, "self.debug(1, 9)") {
		t.Errorf("debug indexes not counted:\n%s", got)
	}
}

func TestInsertAndAttach(t *testing.T) {
	s := &ast.Name{Kind: ast.KindString, Ident: "suffix"}
	body := &ast.Bra{Pos: ast.Pos{LineNo: 1}, Body: []ast.Command{
		&ast.Insert{Pos: ast.Pos{LineNo: 2}, Source: ast.Source{Literal: []rune("e")}},
		&ast.Attach{Pos: ast.Pos{LineNo: 3}, Source: ast.Source{Name: s}},
		&ast.SliceFrom{Pos: ast.Pos{LineNo: 4}, Source: ast.Source{Literal: []rune("i")}},
	}}
	got, _ := lowerBody(t, body)
	checkOutput(t, got, lines(
		"",
		"def r_r(self):",
		"    # (, line 1",
		"    # insert, line 2",
		`    self.insert(self.cursor, self.cursor, u"e")`,
		"    # attach, line 3",
		"    v_2 = self.cursor",
		"    self.insert(self.cursor, self.cursor, self.S_suffix)",
		"    self.cursor = v_2",
		"    # <-, line 4",
		`    if not self.slice_from(u"i"):`,
		"        return False",
		"    return True",
	))
}

func TestContinuationBefore(t *testing.T) {
	k := To(3).Before("b")
	k2 := k.Before("a")
	if diff := cmp.Diff([]string{"a", "b"}, k2.Cleanup); diff != "" {
		t.Errorf("cleanup order (-want +got):\n%s", diff)
	}
	if len(k.Cleanup) != 1 || k2.Label != 3 {
		t.Errorf("Before must not alter its receiver: %+v %+v", k, k2)
	}
}
