package system

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// FindLatestManifest ищет самый свежий манифест реплик (cues.yaml) в дереве
// директории рендера. Рендер-слой складывает каждую выгрузку в отдельную
// поддиректорию.
func FindLatestManifest(dir string) (string, error) {
	var latestFile string
	var latestTime time.Time

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Name() != "cues.yaml" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено манифестов cues.yaml", dir)
	}

	return latestFile, nil
}

// FindLatestDocument ищет самый свежий документ тайм-линии (*.bdn.yaml)
// для режима прямого экспорта.
func FindLatestDocument(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range entries {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".bdn.yaml") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено документов *.bdn.yaml", dir)
	}

	return latestFile, nil
}
