package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Response is the envelope printed with --format json or yaml.
type Response struct {
	Status string      `json:"status" yaml:"status"`
	Data   interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// printer writes command results in the selected format.
type printer struct {
	format string
	out    io.Writer
}

func (p printer) result(data interface{}, text string, args ...interface{}) error {
	switch p.format {
	case "json":
		encoder := json.NewEncoder(p.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(Response{Status: "ok", Data: data})
	case "yaml":
		plain, err := jsonShape(data)
		if err != nil {
			return err
		}
		encoder := yaml.NewEncoder(p.out)
		encoder.SetIndent(2)
		if err := encoder.Encode(Response{Status: "ok", Data: plain}); err != nil {
			return err
		}
		return encoder.Close()
	}
	_, err := fmt.Fprintf(p.out, text+"\n", args...)
	return err
}

// jsonShape re-reads data through its JSON form so yaml keys follow the
// json tags of the dto types.
func jsonShape(data interface{}) (interface{}, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var plain interface{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}
