package render

import (
	"fmt"
)

// ConcatArgs joins rendered segments through the concat filter with a full re-encode
func ConcatArgs(segments []string, output string, out Output) ([]string, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("concat: no segments")
	}

	args := []string{"-y"}
	var pads []string
	for i, seg := range segments {
		args = append(args, "-i", seg)
		pads = append(pads, fmt.Sprintf("%d:v", i), fmt.Sprintf("%d:a", i))
	}

	var g Graph
	g.Add(Chain{
		Inputs:  pads,
		Filters: []Filter{NewFilter("concat").Set("n", len(segments)).Set("v", 1).Set("a", 1)},
		Outputs: []string{"v", "a"},
	})

	args = append(args,
		"-filter_complex", g.String(),
		"-map", "[v]",
		"-map", "[a]",
	)
	args = append(args, encodeArgs(out)...)
	args = append(args, "-movflags", "+faststart", output)
	return args, nil
}
