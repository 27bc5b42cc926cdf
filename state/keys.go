package state

import "launchpad/native/launch"

const (
	paramsKey      = "launch/params"
	proposalPrefix = "launch/proposal/"
	makerPrefix    = "launch/maker/"
	backerPrefix   = "launch/backer/"
	quotaPrefix    = "launch/quota/"
	accountPrefix  = "launch/account/"
)

func proposalKey(id launch.ProposalID) []byte {
	return append([]byte(proposalPrefix), id[:]...)
}

func makerKey(addr [20]byte) []byte {
	return append([]byte(makerPrefix), addr[:]...)
}

func backerKey(id launch.ProposalID, backer [20]byte) []byte {
	key := append([]byte(backerPrefix), id[:]...)
	return append(key, backer[:]...)
}

func quotaKey(addr [20]byte) []byte {
	return append([]byte(quotaPrefix), addr[:]...)
}

func accountKey(addr []byte) []byte {
	return append([]byte(accountPrefix), addr...)
}
