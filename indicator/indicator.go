// Package indicator builds the opaque study-configuration payload strings
// consumed by session.SessionConfig.Indicators. The session core never
// introspects these payloads; it only embeds them as a raw JSON fragment in
// a create_study request.
package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// InputType is the "t" discriminant TradingView studies use for each input:
// an integer parameter or a series source reference (e.g. "close").
type InputType string

const (
	TypeInteger InputType = "integer"
	TypeSource  InputType = "source"
)

// Input is one in_N entry: {"v": value, "f": true, "t": type}.
type Input struct {
	Name  string // positional field, e.g. "in_0"
	Value string // already JSON-formatted: a bare number, or a quoted string
	Type  InputType
}

// IntInput builds an integer-valued input.
func IntInput(name string, value int) Input {
	return Input{Name: name, Value: strconv.Itoa(value), Type: TypeInteger}
}

// SourceInput builds a series-source input, e.g. "close" or "hlc3".
func SourceInput(name, source string) Input {
	return Input{Name: name, Value: strconv.Quote(source), Type: TypeSource}
}

// Build renders the fixed-schema study payload: text (the opaque compiled
// script blob), pineID, pineVersion, and one in_N object per input, in the
// order given. The result is a valid JSON object string suitable for direct
// embedding by writer.createStudy.
func Build(text, pineID, pineVersion string, inputs ...Input) string {
	var b strings.Builder
	b.WriteString(`{"text":`)
	b.WriteString(strconv.Quote(text))
	b.WriteString(`,"pineId":`)
	b.WriteString(strconv.Quote(pineID))
	b.WriteString(`,"pineVersion":`)
	b.WriteString(strconv.Quote(pineVersion))
	for i, in := range inputs {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("in_%d", i)
		}
		b.WriteString(`,"`)
		b.WriteString(name)
		b.WriteString(`":{"v":`)
		b.WriteString(in.Value)
		b.WriteString(`,"f":true,"t":`)
		b.WriteString(strconv.Quote(string(in.Type)))
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.String()
}

// vwapMVWAPEMACrossoverPineID and vwapMVWAPEMACrossoverText are the fixed
// compiled-script identity for the VWAP/MVWAP/EMA-crossover preset. The
// text blob is opaque: it is the server-side compiled script, never decoded
// client-side.
const (
	vwapMVWAPEMACrossoverPineID      = "PUB;N16MOYK6AEJGGAoy40axs0S48GRFYcNn"
	vwapMVWAPEMACrossoverPineVersion = "1.0"
	vwapMVWAPEMACrossoverText        = "bmI9Ks46_14Oy1AFtjg8Ls9wU0S1rlg==_u70xwiBAuvwE8ScMuj3/xelBeUlPpaP443vgI0LOz0anO3Sz0Nml/Cw66rceMmOX/36sFmV/J8A9ocybTXK65SWNk5Mq5ULJ6IYlXtaoFYYsZRWpEMmaP9eq8c+j6BmHYcbh3XLrcNMUimL3emFm7ualhqyIU9Bit+n31nA898zBRSxB1+Jj5sHZ5cCUltgwmiCmbV6WhQoR6fRTVK5DXvgazVghDGv9ZF18/TpaZAnipKAZ1P59oNNL2e72XZQXWzWZlAbu7CHAtjyLv5RmO9bMBdsr2+Icd5cmGy+inNgtM4++cecagL5owwZhZGA/GRPyZ8UtjuvJesqiGPH+yqQEWtyfCnCjpvTV+tpDCn2SKcSQZyA87pNzAIi6/pspgUb01Sf2+wiJY+HuXAMKZQQ9zgD7oIvjjPaQqTBUgjVc0VMlQYX98yW3jzdOkaRXjKHxqSn0MXodjEBr1wQvH8sUv8Pvrttgdb7LVh/NFH4z8sQMRK7U7HB08M277TrUkz5Lak1OArmJ5vGF36Ty+Cw7nF3T2/t+LHecLwbIAzrtxR85m0fHMsZwwfW8z71w6/PuQnSZnlinambAWGDzUOAcc9CcXj9LRHsi9/wjRecaws1CUt1t4DI3oYsdMBcoGdx79k2a5qJT3aAYgpa1GTY3saW3RK5Lf8DasNK3srIlE6NyomS+pGhpBUpEFbd6iZL5o9G3iPUMHApZF3wXAHq78WxT+dnPUc/x3nnTmUK4IzsJnURj7jdi2Ko3LlC6OIO8o9/6knQPipTK7MMPG+sSJoFrfVaQiH6aXUMiTAspzHVmeoxZRFoi3J95HfXh+bOMbIwP62VmHgH0RhZzHWpUxIJof4iK/SIo3JVAQkt43JGyD8A0CzIgH2MVZmMV+rwe6URDCO63Vrs/6Fvz6QzPWbUmiXW5laTpBXJzM5mBrZD+M9Zso42rATUT6w3i23H2VE5kKbHG5p5kkyGM1c134cike1y5gyZDK3SMmnQyNgxUJKG0UpgXF2dnlQJpHXzya8dXco5QhldBd7TG33vKdKN5Ti/LMP6GJsZt6QC4CZWj0tWC8ow9ETVkiw0GGSLNUq818rG0EnWt9ZPVPu2dyT3gP/ZamMmmrKRWne12psNknznrqiH1ffDxdGGkJgVpda377gPVPYK5XrzyXvQKhNf7/xdAqN5DAiW5xpiUJ6GFcl3sgR35OBsFkFA="
)

// VWAPMVWAPEMACrossover builds the VWAP/MVWAP/EMA-crossover study payload
// with the script's eight inputs in positional order.
func VWAPMVWAPEMACrossover(vwapLength int, ema1Source string, ema1Length int, ema2Source string, ema2Length int, rsiLimit, rsiMinimum, mvwapLength int) string {
	return Build(vwapMVWAPEMACrossoverText, vwapMVWAPEMACrossoverPineID, vwapMVWAPEMACrossoverPineVersion,
		IntInput("in_0", vwapLength),
		SourceInput("in_1", ema1Source),
		IntInput("in_2", ema1Length),
		SourceInput("in_3", ema2Source),
		IntInput("in_4", ema2Length),
		IntInput("in_5", rsiLimit),
		IntInput("in_6", rsiMinimum),
		IntInput("in_7", mvwapLength),
	)
}
