// Package upstreamtest 提供内存版 mail.tm 兼容服务，用于测试上游交互。
package upstreamtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Message 是假服务中的一封邮件
type Message struct {
	ID      string
	From    string
	Subject string
	Text    string
}

type account struct {
	id       string
	address  string
	password string
	token    string
	messages []Message
}

// Server 模拟上游临时邮箱服务
type Server struct {
	*httptest.Server

	Domain string

	mu         sync.Mutex
	accounts   map[string]*account // address -> account
	byToken    map[string]*account
	rejectFunc func(address string) bool
	loginFail  bool

	registerCalls atomic.Int64
	loginCalls    atomic.Int64
	readCalls     atomic.Int64
}

// NewServer 启动假服务，调用方负责 Close
func NewServer(domain string) *Server {
	s := &Server{
		Domain:   domain,
		accounts: make(map[string]*account),
		byToken:  make(map[string]*account),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", s.handleAccounts)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/messages", s.handleMessages)
	mux.HandleFunc("/messages/", s.handleMessage)
	mux.HandleFunc("/domains", s.handleDomains)
	s.Server = httptest.NewServer(mux)
	return s
}

// RejectRegistration 设置注册拒绝规则（返回 true 的地址会收到 422）
func (s *Server) RejectRegistration(fn func(address string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectFunc = fn
}

// FailLogin 使 /token 始终失败
func (s *Server) FailLogin(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginFail = fail
}

// AddMessage 向指定地址投递一封邮件，地址不存在时返回 false
func (s *Server) AddMessage(address string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(address)]
	if !ok {
		return false
	}
	acc.messages = append(acc.messages, msg)
	return true
}

// HasAccount 判断上游是否已注册该地址
func (s *Server) HasAccount(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[strings.ToLower(address)]
	return ok
}

// RegisterCalls 返回 POST /accounts 调用次数
func (s *Server) RegisterCalls() int { return int(s.registerCalls.Load()) }

// LoginCalls 返回 POST /token 调用次数
func (s *Server) LoginCalls() int { return int(s.loginCalls.Load()) }

// ReadCalls 返回 /messages 相关调用次数
func (s *Server) ReadCalls() int { return int(s.readCalls.Load()) }

type credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.registerCalls.Add(1)

	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"hydra:description": "invalid json"})
		return
	}
	address := strings.ToLower(c.Address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasSuffix(address, "@"+s.Domain) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"hydra:description": "address: domain not allowed"})
		return
	}
	if s.rejectFunc != nil && s.rejectFunc(address) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"hydra:description": "address: This value is already used."})
		return
	}
	if _, exists := s.accounts[address]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"hydra:description": "address: This value is already used."})
		return
	}

	acc := &account{id: uuid.NewString(), address: address, password: c.Password}
	s.accounts[address] = acc
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         acc.id,
		"address":    acc.address,
		"quota":      40000000,
		"used":       0,
		"isDisabled": false,
		"createdAt":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.loginCalls.Add(1)

	var c credentials
	_ = json.NewDecoder(r.Body).Decode(&c)

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(c.Address)]
	if s.loginFail || !ok || acc.password != c.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": 401, "message": "Invalid credentials."})
		return
	}
	if acc.token != "" {
		delete(s.byToken, acc.token)
	}
	acc.token = uuid.NewString()
	s.byToken[acc.token] = acc
	writeJSON(w, http.StatusOK, map[string]string{"id": acc.id, "token": acc.token})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.readCalls.Add(1)
	acc := s.authenticate(r)
	if acc == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": 401, "message": "JWT Token not found"})
		return
	}

	s.mu.Lock()
	members := make([]map[string]interface{}, 0, len(acc.messages))
	for _, m := range acc.messages {
		members = append(members, map[string]interface{}{
			"id":      m.ID,
			"from":    map[string]string{"address": m.From},
			"subject": m.Subject,
			"intro":   m.Text,
			"seen":    false,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hydra:member":     members,
		"hydra:totalItems": len(members),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	s.readCalls.Add(1)
	acc := s.authenticate(r)
	if acc == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": 401, "message": "JWT Token not found"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/messages/")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range acc.messages {
		if m.ID == id {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"id":      m.ID,
				"from":    map[string]string{"address": m.From},
				"to":      []map[string]string{{"address": acc.address}},
				"subject": m.Subject,
				"text":    m.Text,
				"html":    []string{"<p>" + m.Text + "</p>"},
			})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"hydra:description": "Not Found"})
}

func (s *Server) handleDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hydra:member": []map[string]interface{}{
			{"id": "private", "domain": "private.example", "isActive": true, "isPrivate": true},
			{"id": "main", "domain": s.Domain, "isActive": true, "isPrivate": false},
		},
		"hydra:totalItems": 2,
	})
}

func (s *Server) authenticate(r *http.Request) *account {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byToken[token]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/ld+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
