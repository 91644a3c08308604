package render

import (
	"encoding/csv"
	"io"
	"strconv"

	"dstnat2fgt/internal/engine"
)

var csvHeader = []string{"id", "protocol", "extintf", "extips", "extports", "intintf", "intips", "intports", "service", "comment"}

// CSV exports every classified rule, invalid ones included, one per row.
func CSV(w io.Writer, result *engine.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, cl := range result.Rules {
		r := cl.Rule
		record := []string{
			strconv.Itoa(cl.Index),
			protocolName(r.Protocol),
			r.ExternalInterface,
			r.ExternalAddress.String(),
			r.ExternalPorts.String(),
			r.InternalInterface,
			r.InternalAddress.String(),
			r.InternalPorts.String(),
			cl.Service,
			r.Comment,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
