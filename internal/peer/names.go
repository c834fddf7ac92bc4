package peer

import "strings"

// DefaultNamespace is the identity prefix of the stock peer install.
const DefaultNamespace = "com.lowtechguys.Clop"

const (
	workSuffix   = "optimisationService"
	stopSuffix   = "optimisationServiceStop"
	socketSuffix = ".sock"
)

// WorkChannel returns the name of the channel that accepts optimisation
// requests for the peer identified by namespace.
func WorkChannel(namespace string) string {
	return namespace + "." + workSuffix
}

// StopChannel returns the name of the channel that accepts stop requests.
func StopChannel(namespace string) string {
	return namespace + "." + stopSuffix
}

// namespaceFromSocket extracts the namespace from a work channel socket file
// name such as "com.lowtechguys.Clop.optimisationService.sock".
func namespaceFromSocket(base string) (string, bool) {
	name, ok := strings.CutSuffix(base, socketSuffix)
	if !ok {
		return "", false
	}
	ns, ok := strings.CutSuffix(name, "."+workSuffix)
	if !ok || ns == "" {
		return "", false
	}
	return ns, true
}

// inFamily reports whether ns is a variant of the family prefix, for
// example a differently signed build of the same peer.
func inFamily(ns, family string) bool {
	return strings.HasPrefix(ns, family)
}
