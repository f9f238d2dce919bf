package builtin

import (
	"context"
	"time"

	"github.com/soyeahso/stratus/internal/plugin"
	"github.com/soyeahso/stratus/internal/version"
)

const ctcpDelim = "\x01"

// CTCP answers VERSION, PING and TIME requests.
func CTCP(r *plugin.Registrar) error {
	r.Regex([]string{`^\x01VERSION\x01$`}, ctcpVersion,
		plugin.Name("ctcp_version"), plugin.Needs("notice"), plugin.Cooperative())
	r.Regex([]string{`^\x01PING(?: (.*))?\x01$`}, ctcpPing,
		plugin.Name("ctcp_ping"), plugin.Needs("notice", "match"), plugin.Cooperative())
	r.Regex([]string{`^\x01TIME\x01$`}, ctcpTime,
		plugin.Name("ctcp_time"), plugin.Needs("notice"), plugin.Cooperative())
	return nil
}

func ctcpReply(args plugin.Args, body string) error {
	return args.Notice()(ctcpDelim + body + ctcpDelim)
}

func ctcpVersion(_ context.Context, args plugin.Args) (any, error) {
	return nil, ctcpReply(args, "VERSION "+version.CTCP())
}

func ctcpPing(_ context.Context, args plugin.Args) (any, error) {
	reply := "PING"
	if m := args.Strings("match"); len(m) > 1 && m[1] != "" {
		reply += " " + m[1]
	}
	return nil, ctcpReply(args, reply)
}

func ctcpTime(_ context.Context, args plugin.Args) (any, error) {
	return nil, ctcpReply(args, "TIME "+time.Now().Format(time.RFC1123))
}
