// Persistence for the exact plain-text DPA format — the sole bit-exact
// external artifact of the core; every other interface in this module
// is in-process. Every other package only ever sees a *TotalDPA built in
// memory by Build or loaded here.
package dpa

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	hdrInVars        = "in_vars"
	hdrOutVars       = "out_vars"
	hdrLTLFormula    = "ltl_formula"
	hdrNIOVars       = "n_io_vars"
	hdrStateSize     = "product_state_size"
	hdrSimplifiedLTL = "simplified_ltl"
	hdrParity        = "parity"
	hdrMaxColor      = "max_color"
	hdrStatuses      = "statuses"
	hdrNStates       = "n_states"
	hdrStates        = "states"
	hdrIsTop         = "states_is_top"
	hdrIsBottom      = "states_is_bottom"
)

// WriteTo serializes d in the exact section order ReadFrom expects.
func WriteTo(w io.Writer, d *TotalDPA) error {
	bw := bufio.NewWriter(w)

	writeLine := func(header, value string) {
		fmt.Fprintf(bw, "%s: %s\n", header, value)
	}

	writeLine(hdrInVars, braceJoinInts(d.InVars))
	writeLine(hdrOutVars, braceJoinInts(d.OutVars))
	writeLine(hdrLTLFormula, d.LTLFormula)
	writeLine(hdrNIOVars, strconv.Itoa(d.alphabetSize))

	stateSize := 0
	if len(d.components) > 0 {
		stateSize = len(d.components[0])
	}
	writeLine(hdrStateSize, strconv.Itoa(stateSize))
	writeLine(hdrSimplifiedLTL, boolDigit(d.SimplifiedLTL))
	writeLine(hdrParity, strconv.Itoa(int(d.parity)))
	writeLine(hdrMaxColor, strconv.Itoa(int(d.maxColor)))

	statuses := make([]string, len(d.statuses))
	for i, s := range d.statuses {
		statuses[i] = s.String()
	}
	writeLine(hdrStatuses, "{"+strings.Join(statuses, ",")+"}")

	writeLine(hdrNStates, strconv.Itoa(len(d.components)))

	stateParts := make([]string, len(d.components))
	for i, comp := range d.components {
		stateParts[i] = braceJoinInts(comp)
	}
	writeLine(hdrStates, strings.Join(stateParts, ";"))

	topParts := make([]string, len(d.isTop))
	for i, b := range d.isTop {
		topParts[i] = boolDigit(b)
	}
	writeLine(hdrIsTop, "{"+strings.Join(topParts, ",")+"}")

	bottomParts := make([]string, len(d.isBottom))
	for i, b := range d.isBottom {
		bottomParts[i] = boolDigit(b)
	}
	writeLine(hdrIsBottom, "{"+strings.Join(bottomParts, ",")+"}")

	for si, edges := range d.edges {
		parts := make([]string, len(edges))
		for li, e := range edges {
			parts[li] = fmt.Sprintf("{%d,%d,%d,%s}", li, int(e.Next), int(e.Color), strconv.FormatFloat(e.Score, 'g', -1, 64))
		}
		writeLine(fmt.Sprintf("state_%d_edges", si), strings.Join(parts, ";"))
	}

	return bw.Flush()
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func braceJoinInts(vs []int32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func parseBraceList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, ErrInvalidFile
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	parts := strings.Split(inner, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts, nil
}

func parseBraceInts(s string) ([]int32, error) {
	parts, err := parseBraceList(s)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, ErrInvalidFile
		}
		out[i] = int32(v)
	}
	return out, nil
}

func parseBraceBools(s string) ([]bool, error) {
	parts, err := parseBraceList(s)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(parts))
	for i, p := range parts {
		out[i] = p == "1"
	}
	return out, nil
}

// section reads one "header: value" line and verifies its header matches
// want, tolerating leading/trailing whitespace.
func section(sc *bufio.Scanner, want string) (string, error) {
	if !sc.Scan() {
		return "", ErrInvalidFile
	}
	line := strings.TrimSpace(sc.Text())
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", ErrInvalidFile
	}
	header := strings.TrimSpace(line[:idx])
	if header != want {
		return "", ErrInvalidFile
	}
	return strings.TrimSpace(line[idx+1:]), nil
}

// ReadFrom parses the exact plain-text format written by WriteTo.
func ReadFrom(r io.Reader) (*TotalDPA, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<24)

	d := &TotalDPA{}

	inVarsStr, err := section(sc, hdrInVars)
	if err != nil {
		return nil, err
	}
	if d.InVars, err = parseBraceInts(inVarsStr); err != nil {
		return nil, err
	}

	outVarsStr, err := section(sc, hdrOutVars)
	if err != nil {
		return nil, err
	}
	if d.OutVars, err = parseBraceInts(outVarsStr); err != nil {
		return nil, err
	}

	if d.LTLFormula, err = section(sc, hdrLTLFormula); err != nil {
		return nil, err
	}

	nIOVarsStr, err := section(sc, hdrNIOVars)
	if err != nil {
		return nil, err
	}
	nIOVars, err := strconv.Atoi(nIOVarsStr)
	if err != nil {
		return nil, ErrInvalidFile
	}
	d.alphabetSize = nIOVars

	if _, err = section(sc, hdrStateSize); err != nil {
		return nil, err
	}

	simplifiedStr, err := section(sc, hdrSimplifiedLTL)
	if err != nil {
		return nil, err
	}
	d.SimplifiedLTL = simplifiedStr == "1"

	parityStr, err := section(sc, hdrParity)
	if err != nil {
		return nil, err
	}
	parityInt, err := strconv.Atoi(parityStr)
	if err != nil {
		return nil, ErrInvalidFile
	}
	d.parity = Parity(parityInt)

	maxColorStr, err := section(sc, hdrMaxColor)
	if err != nil {
		return nil, err
	}
	maxColorInt, err := strconv.Atoi(maxColorStr)
	if err != nil {
		return nil, ErrInvalidFile
	}
	d.maxColor = Color(maxColorInt)

	statusesStr, err := section(sc, hdrStatuses)
	if err != nil {
		return nil, err
	}
	statusParts, err := parseBraceList(statusesStr)
	if err != nil {
		return nil, err
	}
	d.statuses = make([]VarStatus, len(statusParts))
	for i, p := range statusParts {
		vs, ok := parseVarStatus(p)
		if !ok {
			return nil, ErrInvalidFile
		}
		d.statuses[i] = vs
	}

	nStatesStr, err := section(sc, hdrNStates)
	if err != nil {
		return nil, err
	}
	nStates, err := strconv.Atoi(nStatesStr)
	if err != nil {
		return nil, ErrInvalidFile
	}

	statesStr, err := section(sc, hdrStates)
	if err != nil {
		return nil, err
	}
	stateChunks := strings.Split(statesStr, ";")
	if len(stateChunks) != nStates {
		return nil, ErrInvalidFile
	}
	d.components = make([][]int32, nStates)
	for i, chunk := range stateChunks {
		comp, err := parseBraceInts(chunk)
		if err != nil {
			return nil, err
		}
		d.components[i] = comp
	}

	isTopStr, err := section(sc, hdrIsTop)
	if err != nil {
		return nil, err
	}
	if d.isTop, err = parseBraceBools(isTopStr); err != nil {
		return nil, err
	}
	if len(d.isTop) != nStates {
		return nil, ErrInvalidFile
	}

	isBottomStr, err := section(sc, hdrIsBottom)
	if err != nil {
		return nil, err
	}
	if d.isBottom, err = parseBraceBools(isBottomStr); err != nil {
		return nil, err
	}
	if len(d.isBottom) != nStates {
		return nil, ErrInvalidFile
	}

	d.edges = make([][]Edge, nStates)
	nLetters := int(1) << uint(d.alphabetSize)
	for si := 0; si < nStates; si++ {
		edgesStr, err := section(sc, fmt.Sprintf("state_%d_edges", si))
		if err != nil {
			return nil, err
		}
		chunks := strings.Split(edgesStr, ";")
		if len(chunks) != nLetters {
			return nil, ErrInvalidFile
		}
		edges := make([]Edge, nLetters)
		for li, chunk := range chunks {
			tuple, err := parseBraceList(chunk)
			if err != nil || len(tuple) != 4 {
				return nil, ErrInvalidFile
			}
			letter, err1 := strconv.Atoi(tuple[0])
			succ, err2 := strconv.Atoi(tuple[1])
			color, err3 := strconv.Atoi(tuple[2])
			score, err4 := strconv.ParseFloat(tuple[3], 64)
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil || letter != li {
				return nil, ErrInvalidFile
			}
			edges[li] = Edge{Next: StateID(succ), Color: Color(color), Score: score}
		}
		d.edges[si] = edges
	}

	d.initial = 0
	return d, nil
}
