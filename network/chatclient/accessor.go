package chatclient

import (
	"RCS/configs"
	"RCS/network"
)

// CentralAccessor is the client half of the central server's user surface:
// one typed wrapper per operation over a cached connection.
type CentralAccessor struct {
	caller  *network.Caller
	central string

	User     string
	Password string
}

func NewAccessor(central string) *CentralAccessor {
	return &CentralAccessor{caller: network.NewCaller(), central: central}
}

func (a *CentralAccessor) RegisterUser(user string, password string) (network.Response, error) {
	req := &network.Request{Kind: configs.KindRegisterUser, User: user, Password: password}
	resp := network.Response{}
	err := a.caller.Call(a.central, req, &resp)
	if err == nil && resp.Status == configs.StatusOK {
		a.User, a.Password = user, password
	}
	return resp, err
}

func (a *CentralAccessor) Login(user string, password string) (network.Response, error) {
	req := &network.Request{Kind: configs.KindLogin, User: user, Password: password}
	resp := network.Response{}
	err := a.caller.Call(a.central, req, &resp)
	if err == nil && resp.Status == configs.StatusOK {
		a.User, a.Password = user, password
	}
	return resp, err
}

func (a *CentralAccessor) ListChatrooms() ([]string, error) {
	req := &network.Request{Kind: configs.KindListChatrooms, User: a.User}
	resp := network.ChatroomListResponse{}
	err := a.caller.Call(a.central, req, &resp)
	return resp.Names, err
}

func (a *CentralAccessor) CreateChatroom(name string) (network.ChatroomResponse, error) {
	req := &network.Request{Kind: configs.KindCreateChatroom, Room: name, User: a.User}
	resp := network.ChatroomResponse{}
	err := a.caller.Call(a.central, req, &resp)
	return resp, err
}

func (a *CentralAccessor) GetChatroom(name string) (network.ChatroomResponse, error) {
	req := &network.Request{Kind: configs.KindGetChatroom, Room: name, User: a.User}
	resp := network.ChatroomResponse{}
	err := a.caller.Call(a.central, req, &resp)
	return resp, err
}

func (a *CentralAccessor) DeleteChatroom(name string) (network.Response, error) {
	req := &network.Request{Kind: configs.KindDeleteChatroom, Room: name, User: a.User, Password: a.Password}
	resp := network.Response{}
	err := a.caller.Call(a.central, req, &resp)
	return resp, err
}

func (a *CentralAccessor) ReestablishChatroom(name string) (network.ChatroomResponse, error) {
	req := &network.Request{Kind: configs.KindReestablishRoom, Room: name, User: a.User}
	resp := network.ChatroomResponse{}
	err := a.caller.Call(a.central, req, &resp)
	return resp, err
}

func (a *CentralAccessor) Close() {
	a.caller.Close()
}
