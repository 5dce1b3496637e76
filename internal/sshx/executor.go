package sshx

import (
	"bytes"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/ilokitv/botSTORE/internal/models"
)

// Result представляет итог выполнения команды на сервере.
// Ошибки соединения и выполнения не выходят за границу Run,
// они складываются в Output при OK=false.
type Result struct {
	OK     bool
	Output string
}

// Runner выполняет одну команду на целевом сервере
type Runner interface {
	Run(vps models.VPS, command string) Result
}

// Executor выполняет команды по SSH: одно соединение и одна сессия
// на вызов, без пула и без повторов
type Executor struct {
	Timeout time.Duration
}

// NewExecutor создает исполнителя с таймаутом подключения по умолчанию
func NewExecutor() *Executor {
	return &Executor{Timeout: 30 * time.Second}
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI удаляет цветовые escape-последовательности из вывода
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// Run подключается к серверу, выполняет ровно одну команду и закрывает
// соединение. stdout и stderr складываются в один буфер в порядке прихода.
func (e *Executor) Run(vps models.VPS, command string) Result {
	addr := fmt.Sprintf("%s:%d", vps.Host, vps.SSHPort())

	config := &ssh.ClientConfig{
		User: vps.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(vps.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.Timeout,
	}

	log.Printf("Выполняется SSH-подключение к серверу %s...", addr)

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		log.Printf("Ошибка SSH-подключения к %s: %v", addr, err)
		return Result{OK: false, Output: err.Error()}
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		log.Printf("Не удалось создать SSH-сессию на %s: %v", addr, err)
		return Result{OK: false, Output: err.Error()}
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	runErr := session.Run(command)
	output := strings.TrimSpace(StripANSI(out.String()))

	if runErr != nil {
		if output == "" {
			output = runErr.Error()
		} else {
			output = output + "\n" + runErr.Error()
		}
		return Result{OK: false, Output: output}
	}

	if output == "" {
		output = "(output kosong)"
	}
	return Result{OK: true, Output: output}
}
