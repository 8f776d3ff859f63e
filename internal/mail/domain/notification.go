package domain

// ChangeNotification is the decoded "something changed" signal for one mailbox.
type ChangeNotification struct {
	AccountIdentifier string `json:"emailAddress"`
	ChangeCursor      uint64 `json:"historyId"`
}
